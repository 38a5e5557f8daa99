package events_test

import (
	"errors"
	"testing"

	"panelreel/internal/events"
	"panelreel/internal/scene"
)

var (
	pageA = scene.PageRef{Series: "s", Volume: "v1", Chapter: "c1", PageID: "p1"}
	pageB = scene.PageRef{Series: "s", Volume: "v1", Chapter: "c1", PageID: "p2"}
)

func TestPublishOrderAndPageFilter(t *testing.T) {
	bus := events.New()
	var got []string
	bus.Subscribe(func(ev events.Event) { got = append(got, "all:"+string(ev.Kind())) })
	bus.SubscribePage(pageA.Key(), func(ev events.Event) { got = append(got, "a:"+string(ev.Kind())) })

	bus.Publish(events.PageTeardown{Page: pageB})
	bus.Publish(events.PageVisibility{Page: pageA, Visible: true})

	want := []string{"all:page_teardown", "all:page_visibility", "a:page_visibility"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	bus := events.New()
	calls := 0
	var second func()
	bus.Subscribe(func(events.Event) { second() })
	second = bus.Subscribe(func(events.Event) { calls++ })

	bus.Publish(events.PageTeardown{Page: pageA})
	bus.Publish(events.PageTeardown{Page: pageA})
	if calls != 0 {
		t.Fatalf("unsubscribed handler ran %d times", calls)
	}
	second()
}

func TestTapDropsWhenFull(t *testing.T) {
	bus := events.New()
	ch := make(chan events.Event, 1)
	if err := bus.Tap("remote", ch); err != nil {
		t.Fatalf("Tap: %v", err)
	}
	if err := bus.Tap("remote", ch); !errors.Is(err, events.ErrTapExists) {
		t.Fatalf("expected ErrTapExists, got %v", err)
	}

	bus.Publish(events.PageVisibility{Page: pageA, Visible: true})
	bus.Publish(events.PageVisibility{Page: pageA, Visible: false})

	stats := bus.Stats()
	if stats.Published != 2 || stats.Sent != 1 || stats.Dropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	ev := (<-ch).(events.PageVisibility)
	if !ev.Visible {
		t.Fatal("expected the first event to be kept")
	}

	if err := bus.Untap("remote"); err != nil {
		t.Fatalf("Untap: %v", err)
	}
	if err := bus.Untap("remote"); !errors.Is(err, events.ErrTapNotFound) {
		t.Fatalf("expected ErrTapNotFound, got %v", err)
	}
}

func TestClosedBusIgnoresPublish(t *testing.T) {
	bus := events.New()
	calls := 0
	bus.Subscribe(func(events.Event) { calls++ })
	bus.Close()
	bus.Publish(events.PageTeardown{Page: pageA})
	if calls != 0 {
		t.Fatal("handler ran after Close")
	}
	if err := bus.Tap("x", make(chan events.Event)); !errors.Is(err, events.ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}
