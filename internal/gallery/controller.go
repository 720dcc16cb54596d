package gallery

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// Backend is the pair of proxy calls the gallery makes.
type Backend interface {
	FetchPlantImages(ctx context.Context, query string, page int) (*models.ImageSearchResponse, error)
	GetPlantRecommendations(ctx context.Context, query, imageData string) ([]models.PlantRecommendation, error)
}

type Options struct {
	Debounce time.Duration
	// OnChange is called on the event loop after every event.
	OnChange func(State)
}

// Controller owns the gallery state. Every transition runs on the Run goroutine;
// commands run on their own goroutines and report back through Dispatch.
type Controller struct {
	backend  Backend
	debounce time.Duration
	onChange func(State)

	events chan Event
	done   chan struct{}

	mu    sync.RWMutex
	state State

	// Only touched on the event loop.
	timer        *time.Timer
	cancelImages context.CancelFunc
	cancelRecs   context.CancelFunc
	cancelUpload context.CancelFunc
}

func NewController(backend Backend, opts Options) *Controller {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DebounceDelay
	}
	return &Controller{
		backend:  backend,
		debounce: debounce,
		onChange: opts.OnChange,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		state:    NewState(),
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Dispatch queues ev for the event loop. It is a no-op once Run has returned.
func (c *Controller) Dispatch(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Start queues the initial gallery load.
func (c *Controller) Start() {
	c.Dispatch(Started{})
}

// Run processes events until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.stopAll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.mu.Lock()
			next, cmds := Update(c.state, ev)
			c.state = next
			c.mu.Unlock()

			for _, cmd := range cmds {
				c.execute(ctx, cmd)
			}
			if c.onChange != nil {
				c.onChange(next)
			}
		}
	}
}

func (c *Controller) execute(ctx context.Context, cmd Command) {
	switch cmd := cmd.(type) {
	case FetchImages:
		fetchCtx := c.replace(ctx, &c.cancelImages)
		go func() {
			resp, err := c.backend.FetchPlantImages(fetchCtx, cmd.Query, cmd.Page)
			if err != nil && fetchCtx.Err() == nil {
				log.Printf("Gallery: image fetch %q page %d failed: %v", cmd.Query, cmd.Page, err)
			}
			c.Dispatch(ImagesLoaded{Gen: cmd.Gen, Page: cmd.Page, Resp: resp, Err: err})
		}()

	case FetchRecommendations:
		fetchCtx := c.replace(ctx, &c.cancelRecs)
		go func() {
			recs, err := c.backend.GetPlantRecommendations(fetchCtx, cmd.Query, cmd.ImageData)
			if err != nil && fetchCtx.Err() == nil {
				log.Printf("Gallery: recommendation request failed: %v", err)
			}
			c.Dispatch(RecommendationsLoaded{Gen: cmd.Gen, Recs: recs, Err: err})
		}()

	case CancelRecommendations:
		cancelSlot(&c.cancelRecs)

	case ScheduleDebounce:
		if c.timer != nil {
			c.timer.Stop()
		}
		seq := cmd.Seq
		c.timer = time.AfterFunc(c.debounce, func() {
			c.Dispatch(DebounceElapsed{Seq: seq})
		})

	case CancelDebounce:
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}

	case ReadUpload:
		readCtx := c.replace(ctx, &c.cancelUpload)
		go c.readUpload(readCtx, cmd)

	case CancelUpload:
		cancelSlot(&c.cancelUpload)
	}
}

func (c *Controller) readUpload(ctx context.Context, cmd ReadUpload) {
	if cmd.File.Open == nil {
		c.Dispatch(UploadFailed{Gen: cmd.Gen, Err: ErrFileRead})
		return
	}
	rc, err := cmd.File.Open()
	if err != nil {
		c.Dispatch(UploadFailed{Gen: cmd.Gen, Err: err})
		return
	}
	defer rc.Close()

	dataURL, err := ReadDataURL(ctx, rc, cmd.File.Size, func(pct int) {
		c.Dispatch(UploadProgress{Gen: cmd.Gen, Percent: pct})
	})
	if err != nil {
		log.Printf("Gallery: reading %s failed: %v", cmd.File.Name, err)
		c.Dispatch(UploadFailed{Gen: cmd.Gen, Err: err})
		return
	}
	c.Dispatch(UploadLoaded{Gen: cmd.Gen, DataURL: dataURL})
}

// replace cancels the task held in slot and stores a fresh one derived from ctx.
func (c *Controller) replace(ctx context.Context, slot *context.CancelFunc) context.Context {
	cancelSlot(slot)
	taskCtx, cancel := context.WithCancel(ctx)
	*slot = cancel
	return taskCtx
}

func cancelSlot(slot *context.CancelFunc) {
	if *slot != nil {
		(*slot)()
		*slot = nil
	}
}

func (c *Controller) stopAll() {
	if c.timer != nil {
		c.timer.Stop()
	}
	cancelSlot(&c.cancelImages)
	cancelSlot(&c.cancelRecs)
	cancelSlot(&c.cancelUpload)
}
