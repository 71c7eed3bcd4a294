package main

import (
	"fmt"

	"scopekit/internal/domain"
)

// creature is the base demo object: two members exposed as external fields
// plus an owned inventory table
type creature struct {
	domain.Attributed
	health   int32
	position domain.Vec4
}

func (c *creature) DeclareSignatures(d *domain.Declarer) {
	c.Attributed.DeclareSignatures(d)
	d.Signatures("health", "position", "transform", "inventory")
}

func (c *creature) Populate(f *domain.Fields) {
	c.Attributed.Populate(f)
	domain.External(f, "health", domain.Slot(&c.health))
	domain.External(f, "position", domain.Slot(&c.position))
	domain.Internal(f, "transform", domain.Identity(), 1)
	f.Scope("inventory")
}

func (c *creature) UpdateExternalStorage(f *domain.Fields) {
	c.Attributed.UpdateExternalStorage(f)
	domain.Rebind(f, "health", domain.Slot(&c.health))
	domain.Rebind(f, "position", domain.Slot(&c.position))
}

// hero adds a name and an owned list of titles
type hero struct {
	creature
	name string
}

func (h *hero) DeclareSignatures(d *domain.Declarer) {
	h.creature.DeclareSignatures(d)
	d.Signatures("name", "titles")
}

func (h *hero) Populate(f *domain.Fields) {
	h.creature.Populate(f)
	domain.External(f, "name", domain.Slot(&h.name))
	domain.Internal(f, "titles", "", 0)
}

func (h *hero) UpdateExternalStorage(f *domain.Fields) {
	h.creature.UpdateExternalStorage(f)
	domain.Rebind(f, "name", domain.Slot(&h.name))
}

// world holds every creature
type world struct {
	domain.Attributed
}

func (w *world) DeclareSignatures(d *domain.Declarer) {
	d.Signature("creatures")
}

func (w *world) Populate(f *domain.Fields) {
	f.Scope("creatures")
}

// buildDemo assembles a small world: a hero, a goblin and a copy of the
// goblin whose health was changed independently
func buildDemo() (*world, error) {
	w := &world{}
	if err := domain.Init(w); err != nil {
		return nil, err
	}

	h := &hero{name: "Aria"}
	h.health = 120
	h.position = domain.Vec4{4, 0, 2, 1}
	if err := domain.Init(h); err != nil {
		return nil, err
	}
	if err := domain.Push(h.Find("titles"), "Dragonslayer"); err != nil {
		return nil, err
	}

	gold, err := h.AppendScope("inventory")
	if err != nil {
		return nil, err
	}
	coins, err := gold.Append("coins")
	if err != nil {
		return nil, err
	}
	if err := domain.Assign(coins, int32(250)); err != nil {
		return nil, err
	}

	goblin := &creature{health: 30, position: domain.Vec4{-3, 0, 7, 1}}
	if err := domain.Init(goblin); err != nil {
		return nil, err
	}
	target, err := goblin.AddAuxiliary("target")
	if err != nil {
		return nil, err
	}
	if err := domain.Push[domain.Object](target, h); err != nil {
		return nil, err
	}

	twin, err := domain.Copy(goblin)
	if err != nil {
		return nil, err
	}
	if err := domain.Set(twin.Find("health"), int32(12), 0); err != nil {
		return nil, err
	}
	if goblin.health == twin.health {
		return nil, fmt.Errorf("copied creature still shares health storage")
	}

	for _, c := range []domain.Node{h, goblin, twin} {
		if err := w.Adopt("creatures", c); err != nil {
			return nil, err
		}
	}

	weather, err := w.AddAuxiliary("weather")
	if err != nil {
		return nil, err
	}
	if err := domain.Push(weather, "rain"); err != nil {
		return nil, err
	}
	return w, nil
}
