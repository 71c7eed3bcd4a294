package domain

import (
	"reflect"
	"slices"
	"sync"
)

// Declarer collects the prescribed field names of one concrete type. It is
// handed to Reflected.DeclareSignatures exactly once per type.
type Declarer struct {
	names []string
}

// Signature declares name as prescribed. Repeated names are ignored.
func (d *Declarer) Signature(name string) {
	if name == "" || slices.Contains(d.names, name) {
		return
	}
	d.names = append(d.names, name)
}

// Signatures declares several names in order
func (d *Declarer) Signatures(names ...string) {
	for _, name := range names {
		d.Signature(name)
	}
}

// signatureRegistry caches prescribed names per concrete type. The mutex is
// held across the declare callback so that concurrent first construction of
// a type declares it once.
type signatureRegistry struct {
	mu    sync.Mutex
	types map[reflect.Type][]string
}

var signatures = &signatureRegistry{types: make(map[reflect.Type][]string)}

// lookup returns the cached names for t, running declare on a cold cache
func (r *signatureRegistry) lookup(t reflect.Type, declare func(*Declarer)) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if names, ok := r.types[t]; ok {
		return names
	}
	d := &Declarer{}
	declare(d)
	names := slices.Clip(d.names)
	r.types[t] = names
	return names
}

func (r *signatureRegistry) get(t reflect.Type) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names, ok := r.types[t]
	return names, ok
}

func (r *signatureRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[reflect.Type][]string)
}

// ClearSignatures empties the per-type cache so the next Init of each type
// declares again. Existing instances keep the names they were built with.
func ClearSignatures() {
	signatures.clear()
}

// SignaturesOf returns the cached prescribed names for r's concrete type,
// if the type has been initialized since the last ClearSignatures
func SignaturesOf(r Reflected) ([]string, bool) {
	names, ok := signatures.get(reflect.TypeOf(r))
	if !ok {
		return nil, false
	}
	return slices.Clone(names), true
}
