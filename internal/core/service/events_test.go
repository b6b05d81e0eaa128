package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, domain.Event) error {
	return errors.New("broker down")
}

func TestEventDispatcher_DeliversQueuedEvents(t *testing.T) {
	d := NewEventDispatcher(10)
	sink := &recordingPublisher{}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Run(sink, time.Second, nil)
		}()
	}

	for i := 0; i < 5; i++ {
		if err := d.Publish(context.Background(), newEvent(domain.EventOrderCreated, "ORD-1", nil, baseTime)); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}
	d.Close()
	wg.Wait()

	if got := len(sink.types()); got != 5 {
		t.Errorf("expected 5 delivered events, got %d", got)
	}
}

func TestEventDispatcher_ReportsFailures(t *testing.T) {
	d := NewEventDispatcher(2)
	var failed []domain.Event

	d.Publish(context.Background(), newEvent(domain.EventProductDeleted, "7", nil, baseTime))
	d.Close()
	d.Run(failingPublisher{}, time.Second, func(e domain.Event, err error) {
		failed = append(failed, e)
	})

	if len(failed) != 1 || failed[0].AggregateID != "7" {
		t.Errorf("expected one failed event, got %+v", failed)
	}
}

func TestEventDispatcher_ClosedRejectsPublish(t *testing.T) {
	d := NewEventDispatcher(1)
	d.Close()
	d.Close()

	err := d.Publish(context.Background(), domain.Event{})
	if !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("expected ErrDispatcherClosed, got %v", err)
	}
}

func TestEventDispatcher_FullQueueHonoursContext(t *testing.T) {
	d := NewEventDispatcher(1)
	d.Publish(context.Background(), domain.Event{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := d.Publish(ctx, domain.Event{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		page      int
		size      int
		want      []int
		wantPage  int
		wantPages int
	}{
		{name: "first page", page: 1, size: 2, want: []int{1, 2}, wantPage: 1, wantPages: 3},
		{name: "last partial page", page: 3, size: 2, want: []int{5}, wantPage: 3, wantPages: 3},
		{name: "zero page clamps to one", page: 0, size: 2, want: []int{1, 2}, wantPage: 1, wantPages: 3},
		{name: "beyond range", page: 4, size: 2, want: []int{}, wantPage: 4, wantPages: 3},
		{name: "huge page", page: math.MaxInt/2 + 2, size: 2, want: []int{}, wantPage: math.MaxInt/2 + 2, wantPages: 3},
		{name: "huge size", page: 1, size: math.MaxInt, want: []int{1, 2, 3, 4, 5}, wantPage: 1, wantPages: 1},
		{name: "huge page and size", page: math.MaxInt, size: math.MaxInt, want: []int{}, wantPage: math.MaxInt, wantPages: 1},
		{name: "exact multiple", page: 2, size: 5, want: []int{}, wantPage: 2, wantPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, page, pages := paginate(items, tt.page, tt.size)
			if len(got) != len(tt.want) || page != tt.wantPage || pages != tt.wantPages {
				t.Fatalf("got %v page %d of %d", got, page, pages)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: expected %d, got %d", i, tt.want[i], got[i])
				}
			}
		})
	}
}
