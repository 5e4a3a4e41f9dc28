package ue

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/ransched/model"
)

var (
	// ErrUEExists indicates the repository already holds a UE at the index.
	ErrUEExists = errors.New("ue already exists")
	// ErrIndexOutOfRange indicates an index outside the UE universe.
	ErrIndexOutOfRange = errors.New("ue index out of range")
)

// Repository is a fixed-capacity arena of UEs addressed by index.
//
// It is owned by the slot dispatch goroutine and is not safe for concurrent
// use.
type Repository struct {
	ues   [model.MaxUEs]*UE
	count int
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Insert publishes u at its index. The index must be free.
func (r *Repository) Insert(u *UE) error {
	idx := u.Index()
	if !idx.Valid() {
		return fmt.Errorf("%w: ueId=%d", ErrIndexOutOfRange, idx)
	}
	if r.ues[idx] != nil {
		return fmt.Errorf("%w: ueId=%d", ErrUEExists, idx)
	}
	r.ues[idx] = u
	r.count++
	return nil
}

// Remove deletes and returns the UE at idx, or nil when absent.
func (r *Repository) Remove(idx model.UEIndex) *UE {
	if !idx.Valid() {
		return nil
	}
	u := r.ues[idx]
	if u != nil {
		r.ues[idx] = nil
		r.count--
	}
	return u
}

// Get returns the UE at idx regardless of generation, or nil.
func (r *Repository) Get(idx model.UEIndex) *UE {
	if !idx.Valid() {
		return nil
	}
	return r.ues[idx]
}

// Lookup returns the UE at idx only when it belongs to generation gen. A UE
// deleted and re-created at the same index carries a newer generation, so
// references captured for the old one resolve to not found.
func (r *Repository) Lookup(idx model.UEIndex, gen uint32) (*UE, bool) {
	u := r.Get(idx)
	if u == nil || u.generation != gen {
		return nil, false
	}
	return u, true
}

// Contains reports whether a UE exists at idx.
func (r *Repository) Contains(idx model.UEIndex) bool { return r.Get(idx) != nil }

// Len returns the number of UEs.
func (r *Repository) Len() int { return r.count }

// Range calls fn for every UE in index order until fn returns false.
func (r *Repository) Range(fn func(*UE) bool) {
	for _, u := range r.ues {
		if u == nil {
			continue
		}
		if !fn(u) {
			return
		}
	}
}
