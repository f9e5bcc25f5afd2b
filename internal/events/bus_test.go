package events

import (
	"testing"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

func TestBusPublishesInOrderAndUnsubscribes(t *testing.T) {
	bus := NewBus()
	var got []string

	unsubA := bus.Subscribe(func(e DataChanged) { got = append(got, "a:"+string(e.Category)) })
	bus.Subscribe(func(e DataChanged) { got = append(got, "b:"+string(e.Category)) })

	bus.Publish(DataChanged{Category: domain.CategoryExports, SheetCount: 1, RecordCount: 3})
	unsubA()
	bus.Publish(DataChanged{Category: domain.CategoryStockOnHand})

	want := []string{"a:exports", "b:exports", "b:stock-on-hand"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}
