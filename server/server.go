// Package server mounts a tree as a read-only FUSE filesystem
package server

import (
	"errors"
	"sync"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/config"
	"github.com/brettbedarf/docfs/filesystem"
	"github.com/brettbedarf/docfs/internal/util"
)

// Server serves a tree and its content store over FUSE
type Server struct {
	raw    *FuseRaw
	cfg    *config.Config
	server *fuse.Server // Protected by mu
	mu     sync.Mutex
}

// New creates a Server given your config. A nil fs uses the process-wide tree (see [filesystem.Init]).
func New(fs *filesystem.FileSystem, store docfs.ContentStore, cfg *config.Config) *Server {
	if fs == nil {
		if fs = filesystem.Default(); fs == nil {
			fs = filesystem.Init()
		}
	}
	if cfg == nil {
		cfg = config.NewConfig(nil)
	}
	return &Server{
		raw: NewFuseRaw(fs, store, cfg),
		cfg: cfg,
	}
}

// Serve mounts and serves the filesystem at the given mountPoint.
// Returns once the mount is ready.
func (s *Server) Serve(mountPoint string) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return errors.New("already mounted")
	}
	opts := s.cfg.MountOptions
	srv, err := fuse.NewServer(s.raw, mountPoint, &fuse.MountOptions{
		Name:    opts.Name,
		FsName:  opts.FsName,
		Options: []string{"ro"},
		Debug:   opts.Debug || s.cfg.LogLvl == util.TraceLevel,
		Logger:  util.NewLogLogger("FuseServer", util.DebugLevel),
	})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.server = srv
	s.mu.Unlock()

	go srv.Serve()
	return srv.WaitMount()
}

func (s *Server) fuseServer() *fuse.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server
}

// ServeAsync runs [Server.Serve] in the background
func (s *Server) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- s.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted
func (s *Server) Wait() {
	if srv := s.fuseServer(); srv != nil {
		srv.Wait()
	}
}

// Unmount cleanly unmounts the filesystem.
func (s *Server) Unmount() error {
	srv := s.fuseServer()
	if srv == nil {
		return nil
	}
	if err := srv.Unmount(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.server == srv {
		s.server = nil
	}
	s.mu.Unlock()
	return nil
}
