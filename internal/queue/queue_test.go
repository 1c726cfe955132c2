package queue

import "testing"

func TestDrainIsLIFO(t *testing.T) {
	var q Queue
	q.Push(ChatMessage("first"))
	q.Push(ChatMessage("second"))
	q.Push(ChatMessage("third"))

	var order []string
	q.Drain(func(e Effect) {
		order = append(order, e.Text)
	})

	want := []string{"third", "second", "first"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("drain order = %v, want %v", order, want)
		}
	}
	if !q.Empty() {
		t.Error("queue not empty after Drain")
	}
}

func TestDrainHandlesEmptyQueue(t *testing.T) {
	var q Queue
	called := false
	q.Drain(func(Effect) { called = true })
	if called {
		t.Error("Drain invoked fn on empty queue")
	}
}
