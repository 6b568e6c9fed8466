package poller

import (
	"context"
	"log"
	"sync"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
)

// Hub owns one Task per catalog sensor.
type Hub struct {
	tasks map[string]*Task
	order []string
}

// NewHub builds tasks for every sensor in the catalog.
func NewHub(cat *catalog.Catalog, fetcher Fetcher, settings Settings, clock Clock, logger *log.Logger) *Hub {
	h := &Hub{tasks: make(map[string]*Task)}
	for _, sensor := range cat.Sensors() {
		h.tasks[sensor.ID] = NewTask(sensor, fetcher, settings, clock, logger)
		h.order = append(h.order, sensor.ID)
	}
	return h
}

// Run starts all tasks and blocks until ctx is done and every task has
// stopped.
func (h *Hub) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range h.order {
		task := h.tasks[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.Run(ctx)
		}()
	}
	wg.Wait()
}

// Snapshot returns the state of one sensor.
func (h *Hub) Snapshot(sensorID string) (State, error) {
	task, ok := h.tasks[sensorID]
	if !ok {
		return State{}, ErrUnknownSensor
	}
	return task.Snapshot(), nil
}

// Snapshots returns every sensor's state in catalog order.
func (h *Hub) Snapshots() []State {
	out := make([]State, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.tasks[id].Snapshot())
	}
	return out
}

// Refresh polls one sensor immediately.
func (h *Hub) Refresh(ctx context.Context, sensorID string) (State, error) {
	task, ok := h.tasks[sensorID]
	if !ok {
		return State{}, ErrUnknownSensor
	}
	return task.Refresh(ctx)
}
