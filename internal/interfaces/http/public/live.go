package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beanscene/api/internal/interfaces/http/common"
	publicapp "github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

type liveCafesEvent struct {
	Sequence uint64 `json:"sequence"`
	cafeListResponse
	Markers markerCollectionResponse `json:"markers"`
}

type liveErrorEvent struct {
	Sequence uint64 `json:"sequence"`
	common.ErrorResponse
}

type liveResult struct {
	sequence  uint64
	discovery *publicapp.Discovery
	err       error
}

// cafeLiveHandler streams the reconciled cafe list over server-sent events.
// Every invalidation on the bus schedules a debounced refetch; a result is
// only sent when no newer refetch has started since.
func (h *Handler) cafeLiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			common.WriteMessage(h.logger, w, http.StatusInternalServerError, "streaming is not supported")
			return
		}
		if h.bus == nil {
			common.WriteMessage(h.logger, w, http.StatusServiceUnavailable, "live updates are disabled")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		session, _ := common.SessionFromContext(ctx)
		query := discoverQueryFrom(r)
		liveID := uuid.NewString()
		logger := h.logger.With(zap.String("liveId", liveID), zap.String("institution", query.Institution))

		events, unsubscribe := h.bus.Subscribe()
		board := publicapp.NewMarkerBoard()
		debouncer := publicapp.NewDebouncer(h.liveDebounce)
		refetch := make(chan struct{}, 1)
		results := make(chan liveResult)
		var inflight sync.WaitGroup
		defer func() {
			cancel()
			debouncer.Stop()
			unsubscribe()
			inflight.Wait()
			board.Release()
			logger.Debug("live feed closed")
		}()

		var started uint64
		start := func() {
			started++
			sequence := started
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				discovery, err := h.discovery.Discover(ctx, session, query)
				select {
				case results <- liveResult{sequence: sequence, discovery: discovery, err: err}:
				case <-ctx.Done():
				}
			}()
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if err := writeEvent(w, 0, "ready", map[string]string{"liveId": liveID}); err != nil {
			return
		}
		flusher.Flush()
		logger.Debug("live feed opened")

		heartbeat := time.NewTicker(h.heartbeat)
		defer heartbeat.Stop()

		start()
		for {
			select {
			case <-ctx.Done():
				return
			case _, open := <-events:
				if !open {
					return
				}
				debouncer.Trigger(func() {
					select {
					case refetch <- struct{}{}:
					default:
					}
				})
			case <-refetch:
				start()
			case result := <-results:
				if result.sequence < started {
					logger.Debug("dropping stale refetch", zap.Uint64("sequence", result.sequence), zap.Uint64("latest", started))
					continue
				}
				if err := h.writeLiveResult(w, board, result); err != nil {
					logger.Debug("live feed write failed", zap.Error(err))
					return
				}
				flusher.Flush()
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func (h *Handler) writeLiveResult(w http.ResponseWriter, board *publicapp.MarkerBoard, result liveResult) error {
	if result.err != nil {
		_, body := common.StatusFor(result.err)
		h.logger.Warn("live refetch failed", zap.Uint64("sequence", result.sequence), zap.Error(result.err))
		return writeEvent(w, result.sequence, "error", liveErrorEvent{Sequence: result.sequence, ErrorResponse: body})
	}
	markers := board.Replace(result.discovery.Cafes)
	if markers == nil {
		markers = []domain.Marker{}
	}
	return writeEvent(w, result.sequence, "cafes", liveCafesEvent{
		Sequence:         result.sequence,
		cafeListResponse: buildCafeListResponse(result.discovery),
		Markers:          buildMarkerCollection(result.discovery, markers),
	})
}

func writeEvent(w http.ResponseWriter, id uint64, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, name, data)
	return err
}
