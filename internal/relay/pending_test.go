package relay

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPendingIDsAreMonotonic(t *testing.T) {
	p := newPendingTable()
	var last int64
	for i := 0; i < 100; i++ {
		id, _ := p.add()
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
	if p.size() != 100 {
		t.Errorf("expected 100 pending entries, got %d", p.size())
	}
}

func TestPendingResolveIsOneShot(t *testing.T) {
	p := newPendingTable()
	id, ch := p.add()

	if !p.resolve(id, outcome{result: json.RawMessage(`1`)}) {
		t.Fatal("first resolve reported unknown id")
	}
	if p.resolve(id, outcome{result: json.RawMessage(`2`)}) {
		t.Fatal("second resolve succeeded; entry leaked after resolution")
	}

	out := <-ch
	if string(out.result) != "1" {
		t.Errorf("expected first outcome, got %s", out.result)
	}
	select {
	case out := <-ch:
		t.Fatalf("unexpected second outcome: %+v", out)
	default:
	}
	if p.size() != 0 {
		t.Errorf("expected empty table, got %d entries", p.size())
	}
}

func TestPendingResolveUnknownIDIsNoop(t *testing.T) {
	p := newPendingTable()
	if p.resolve(42, outcome{}) {
		t.Error("resolve of unknown id reported success")
	}
}

func TestPendingRemoveMakesLateResolveNoop(t *testing.T) {
	p := newPendingTable()
	id, ch := p.add()
	p.remove(id)

	if p.resolve(id, outcome{result: json.RawMessage(`"late"`)}) {
		t.Fatal("resolve succeeded after remove")
	}
	select {
	case out := <-ch:
		t.Fatalf("channel received outcome after remove: %+v", out)
	default:
	}
}

func TestPendingFailAll(t *testing.T) {
	p := newPendingTable()
	_, ch1 := p.add()
	_, ch2 := p.add()

	p.failAll(ErrDisconnected)

	for i, ch := range []chan outcome{ch1, ch2} {
		out := <-ch
		if !errors.Is(out.err, ErrDisconnected) {
			t.Errorf("entry %d: expected ErrDisconnected, got %v", i, out.err)
		}
	}
	if p.size() != 0 {
		t.Errorf("expected empty table after failAll, got %d", p.size())
	}
}
