// Package viewer owns the currently loaded document and the view state,
// and discards load results that a newer upload has superseded.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfviewer-golang/internal/storage"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/session"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/viewstate"
)

var (
	// ErrSuperseded is returned by Upload when a newer upload started
	// while this one was loading; its result was discarded
	ErrSuperseded = errors.New("load superseded by a newer upload")

	// ErrNoDocument is returned when no document is loaded
	ErrNoDocument = errors.New("no document loaded")
)

// Archive keeps the original bytes of uploaded documents
type Archive interface {
	Put(ctx context.Context, key string, data io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Controller holds the current session and view state. Its mutex is never
// held across engine or storage calls.
type Controller struct {
	opener  engine.Opener
	archive Archive
	log     *logrus.Entry

	mu         sync.Mutex
	generation uint64
	state      viewstate.State
	current    *session.Session
}

// New creates a controller. archive may be nil to skip archiving.
func New(opener engine.Opener, archive Archive, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{
		opener:  opener,
		archive: archive,
		log:     logger.WithField("component", "viewer"),
		state:   viewstate.Initial(),
	}
}

// Upload loads file as the new current document. A non-PDF upload is
// rejected before anything changes. Otherwise the previous document and
// its archived bytes are released at once, and the new one becomes
// current only if no later upload started in the meantime.
func (c *Controller) Upload(ctx context.Context, file session.File) (*session.Session, error) {
	if !session.IsPDF(file.ContentType) {
		c.log.WithFields(logrus.Fields{
			"name":         file.Name,
			"content_type": file.ContentType,
		}).Warn("upload rejected")
		return nil, fmt.Errorf("%w: %q", session.ErrInvalidInputType, file.ContentType)
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	old := c.current
	c.current = nil
	c.state = viewstate.Reduce(c.state, viewstate.LoadStarted{})
	c.mu.Unlock()

	log := c.log.WithFields(logrus.Fields{"generation": gen, "name": file.Name, "size": len(file.Data)})
	if old != nil {
		c.release(ctx, log, old)
	}
	log.Info("loading document")

	s, err := session.Load(ctx, c.opener, file, session.WithLogger(log))
	if err != nil {
		if !c.fail(gen, err) {
			log.WithError(err).Debug("stale load failed")
			return nil, ErrSuperseded
		}
		log.WithError(err).Error("failed to load document")
		return nil, err
	}

	if c.archive != nil {
		if err := c.archive.Put(ctx, storage.UploadKey(s.ID), bytes.NewReader(file.Data)); err != nil {
			log.WithError(err).Warn("failed to archive upload")
		}
	}

	if !c.commit(gen, s) {
		log.WithField("session", s.ID).Info("discarding superseded load")
		c.release(ctx, log, s)
		return nil, ErrSuperseded
	}

	log.WithFields(logrus.Fields{"session": s.ID, "pages": s.PageCount}).Info("document loaded")
	return s, nil
}

// release closes s and deletes its archived bytes. Both failures are
// logged and the close error is returned.
func (c *Controller) release(ctx context.Context, log *logrus.Entry, s *session.Session) error {
	log = log.WithField("session", s.ID)
	err := s.Close()
	if err != nil {
		log.WithError(err).Warn("failed to close document")
	}
	if c.archive != nil {
		key := storage.UploadKey(s.ID)
		if derr := c.archive.Delete(context.WithoutCancel(ctx), key); derr != nil {
			log.WithError(derr).WithField("key", key).Warn("failed to delete archived upload")
		}
	}
	return err
}

// commit makes s current if gen is still the latest generation
func (c *Controller) commit(gen uint64, s *session.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}
	c.current = s
	c.state = viewstate.Reduce(c.state, viewstate.LoadSucceeded{PageCount: s.PageCount})
	return true
}

// fail records a load failure if gen is still the latest generation
func (c *Controller) fail(gen uint64, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}
	c.state = viewstate.Reduce(c.state, viewstate.LoadFailed{Err: err.Error()})
	return true
}

// Dispatch applies a user action and returns the new state
func (c *Controller) Dispatch(action viewstate.Action) viewstate.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = viewstate.Reduce(c.state, action)
	return c.state
}

// State returns the current view state
func (c *Controller) State() viewstate.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the current document
func (c *Controller) Session() (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, ErrNoDocument
	}
	return c.current, nil
}

// OpenOriginal opens the archived bytes of the current document
func (c *Controller) OpenOriginal(ctx context.Context) (io.ReadCloser, error) {
	s, err := c.Session()
	if err != nil {
		return nil, err
	}
	if c.archive == nil {
		return nil, fmt.Errorf("archive disabled: %w", storage.ErrNotFound)
	}
	return c.archive.Get(ctx, storage.UploadKey(s.ID))
}

// Prune deletes every archived upload except the current document's,
// such as copies left behind by an earlier process. It returns the
// number of keys deleted.
func (c *Controller) Prune(ctx context.Context) (int, error) {
	if c.archive == nil {
		return 0, nil
	}
	keep := ""
	if s, err := c.Session(); err == nil {
		keep = storage.UploadKey(s.ID)
	}

	keys, err := c.archive.List(ctx, storage.UploadPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list archived uploads: %w", err)
	}
	deleted := 0
	for _, key := range keys {
		if key == keep {
			continue
		}
		if err := c.archive.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		deleted++
	}
	if deleted > 0 {
		c.log.WithField("deleted", deleted).Info("pruned archived uploads")
	}
	return deleted, nil
}

// Close releases the current document and its archived bytes, and resets
// the view state
func (c *Controller) Close() error {
	c.mu.Lock()
	c.generation++
	current := c.current
	c.current = nil
	c.state = viewstate.Reduce(c.state, viewstate.Reset{})
	c.mu.Unlock()

	if current != nil {
		return c.release(context.Background(), c.log, current)
	}
	return nil
}
