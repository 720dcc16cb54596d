// gallery is a terminal front end for the plant gallery proxies.
//
// Usage: go run ./cmd/gallery -server=http://localhost:8080
//
// Type text to search (debounced), or use a command:
//
//	:search [text]   search now
//	:more            load the next page
//	:ai              recommend plants for the query and/or uploaded photo
//	:upload <path>   analyze a photo
//	:select <n>      filter images by recommendation n
//	:expand <n>      expand or collapse recommendation n
//	:open <n>        show image n full size
//	:top             show the gallery from the first image
//	:quit            exit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/codyseavey/plant-gallery/backend/internal/client"
	"github.com/codyseavey/plant-gallery/backend/internal/gallery"
	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

func main() {
	serverURL := flag.String("server", envOr("GALLERY_SERVER_URL", "http://localhost:8080"), "plant gallery proxy base URL")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")
	verbose := flag.Bool("v", false, "log request failures to stderr")
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	sc := &screen{out: os.Stdout, view: gallery.NewView(), verbose: *verbose}
	ctrl := gallery.NewController(client.New(*serverURL, *timeout), gallery.Options{
		OnChange: sc.onChange,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go ctrl.Run(ctx)
	ctrl.Start()

	fmt.Fprintf(os.Stdout, "Plant gallery (%s). Type to search, :help for commands.\n", *serverURL)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctrl, sc, line); quit {
				return
			}
		}
	}
}

// handleLine runs one line of input. Returns true on :quit.
func handleLine(ctrl *gallery.Controller, sc *screen, line string) bool {
	if !strings.HasPrefix(line, ":") {
		ctrl.Dispatch(gallery.QueryChanged{Text: line})
		return false
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	state := ctrl.State()

	switch cmd {
	case "quit", "q":
		return true
	case "help", "h":
		sc.printf("Commands: :search [text] :more :ai :upload <path> :select <n> :expand <n> :open <n> :top :quit\n")
	case "search", "s":
		query := state.Search.QueryText
		if arg != "" {
			query = arg
		}
		ctrl.Dispatch(gallery.SearchSubmitted{Query: query})
	case "more", "m":
		if !state.CanLoadMore() {
			sc.printf("Nothing more to load.\n")
			return false
		}
		ctrl.Dispatch(gallery.LoadMoreRequested{})
	case "ai":
		ctrl.Dispatch(gallery.RecommendRequested{})
	case "upload", "u":
		file, err := gallery.FileFromPath(arg)
		if err != nil {
			if sc.verbose {
				sc.printf("! %s (%v)\n", gallery.MsgUploadReadFailed, err)
			} else {
				sc.printf("! %s\n", gallery.MsgUploadReadFailed)
			}
			return false
		}
		ctrl.Dispatch(file)
	case "select":
		if i, ok := index(arg, len(state.Recommendations)); ok {
			ctrl.Dispatch(gallery.PlantSelected{Name: state.Recommendations[i].Name})
		} else {
			sc.printf("No recommendation %q.\n", arg)
		}
	case "expand", "e":
		if i, ok := index(arg, len(state.Recommendations)); ok {
			sc.toggle(state, i)
		} else {
			sc.printf("No recommendation %q.\n", arg)
		}
	case "open", "o":
		if i, ok := index(arg, len(state.Images)); ok {
			sc.preview(state.Images[i])
		} else {
			sc.printf("No image %q.\n", arg)
		}
	case "top":
		sc.top(state)
	default:
		sc.printf("Unknown command :%s\n", cmd)
	}
	return false
}

// index parses a 1-based position into a 0-based index below n.
func index(arg string, n int) (int, bool) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

// screen serializes output from the input loop and the controller's event loop.
type screen struct {
	mu       sync.Mutex
	out      io.Writer
	view     *gallery.View
	verbose  bool
	wasBusy  bool
	lastErr  string
	lastStep int
}

// onChange redraws when work settles or a new error appears, and reports upload progress.
func (s *screen) onChange(st gallery.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Uploading {
		if step := st.Upload.ProgressPercent / 25; step != s.lastStep {
			s.lastStep = step
			fmt.Fprintf(s.out, "Uploading photo... %d%%\n", st.Upload.ProgressPercent)
		}
	} else {
		s.lastStep = 0
	}

	newErr := st.Error != "" && st.Error != s.lastErr
	settled := s.wasBusy && !st.Busy()
	s.wasBusy = st.Busy()
	s.lastErr = st.Error

	if newErr || settled {
		s.view.Render(s.out, st)
	}
}

func (s *screen) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *screen) toggle(st gallery.State, i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ToggleCard(st, i)
	s.view.ScrollTop()
	s.view.Render(s.out, st)
}

func (s *screen) preview(img models.ImageResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gallery.RenderPreview(s.out, img)
}

func (s *screen) top(st gallery.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ScrollTop()
	s.view.Render(s.out, st)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
