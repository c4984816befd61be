package channel

import (
	"errors"
	"testing"
)

type memRepo struct {
	channels []Channel
	saves    int
}

func (m *memRepo) Load() ([]Channel, error) { return append([]Channel{}, m.channels...), nil }
func (m *memRepo) Save(channels []Channel) error {
	m.channels = append([]Channel{}, channels...)
	m.saves++
	return nil
}

func TestNewRegistry_SeedsEmptyRepo(t *testing.T) {
	repo := &memRepo{}
	seed := Channel{ID: 100, Author: 1, Description: "Default channel"}
	r, err := NewRegistry(repo, seed)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if r.Default() != seed {
		t.Fatalf("default mismatch: %+v", r.Default())
	}
	if repo.saves != 1 {
		t.Fatalf("seed not persisted, saves=%d", repo.saves)
	}
}

func TestNewRegistry_KeepsExistingOrder(t *testing.T) {
	repo := &memRepo{channels: []Channel{{ID: 100, Author: 1}, {ID: 200, Author: 2}}}
	r, err := NewRegistry(repo, Channel{ID: 999})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if r.Default().ID != 100 {
		t.Fatalf("default must be the zero-index entry, got %d", r.Default().ID)
	}
	if repo.saves != 0 {
		t.Fatalf("unexpected save on load")
	}
}

func TestRegistry_AddAndRemove(t *testing.T) {
	repo := &memRepo{channels: []Channel{{ID: 100, Author: 1}}}
	r, _ := NewRegistry(repo, Channel{})

	if err := r.Add(Channel{ID: 200, Author: 2, Password: "pass123"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Add(Channel{ID: 200, Author: 3}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate add: want ErrAlreadyRegistered, got %v", err)
	}
	ch, ok := r.Get(200)
	if !ok || ch.Author != 2 || ch.Open() {
		t.Fatalf("get after add: %+v ok=%v", ch, ok)
	}
	if len(repo.channels) != 2 {
		t.Fatalf("add not persisted: %+v", repo.channels)
	}

	if err := r.Remove(100); !errors.Is(err, ErrDefaultChannel) {
		t.Fatalf("remove default: want ErrDefaultChannel, got %v", err)
	}
	if err := r.Remove(300); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("remove unknown: want ErrUnknownChannel, got %v", err)
	}
	if err := r.Remove(200); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := r.Get(200); ok {
		t.Fatalf("channel still present after remove")
	}
	if len(repo.channels) != 1 {
		t.Fatalf("remove not persisted: %+v", repo.channels)
	}
}

func TestRegistry_ListIsACopy(t *testing.T) {
	repo := &memRepo{channels: []Channel{{ID: 100}, {ID: 200}}}
	r, _ := NewRegistry(repo, Channel{})
	list := r.List()
	list[0].ID = 999
	if r.Default().ID != 100 {
		t.Fatalf("List leaked internal state")
	}
}
