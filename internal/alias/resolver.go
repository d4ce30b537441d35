// Package alias maps short user-facing names to canonical model names.
package alias

import (
	"fmt"
	"sort"

	"llamate/internal/config"
	"llamate/internal/store"
)

// Resolver reads and mutates the alias table stored in the global settings.
type Resolver struct {
	settings *config.SettingsStore
	models   *store.ModelStore
}

func NewResolver(settings *config.SettingsStore, models *store.ModelStore) *Resolver {
	return &Resolver{settings: settings, models: models}
}

// Resolve returns the canonical model name for alias, if registered. A
// dangling alias (target record since removed) resolves to nothing. An
// unreadable settings file is a fatal configuration error, never a miss.
func (r *Resolver) Resolve(name string) (string, bool, error) {
	st, err := r.settings.Load()
	if err != nil {
		return "", false, err
	}
	target, ok := st.Aliases[name]
	if !ok || !r.models.Exists(target) {
		return "", false, nil
	}
	return target, true, nil
}

// Register binds alias to a model name. An alias that collides with an
// existing model name is rejected outright, as is a missing target.
func (r *Resolver) Register(alias, model string) error {
	if err := store.ValidateName(alias); err != nil {
		return err
	}
	if r.models.Exists(alias) {
		return store.ErrValidation(fmt.Sprintf("alias %q collides with an existing model name", alias))
	}
	if !r.models.Exists(model) {
		return store.ErrNotFound(model)
	}
	st, err := r.settings.Load()
	if err != nil {
		return err
	}
	if st.Aliases == nil {
		st.Aliases = map[string]string{}
	}
	st.Aliases[alias] = model
	return r.settings.Save(st)
}

// Remove drops an alias. Removing an unknown alias is not an error.
func (r *Resolver) Remove(alias string) error {
	st, err := r.settings.Load()
	if err != nil {
		return err
	}
	if _, ok := st.Aliases[alias]; !ok {
		return nil
	}
	delete(st.Aliases, alias)
	return r.settings.Save(st)
}

// List returns alias→model pairs sorted by alias for stable output.
func (r *Resolver) List() ([][2]string, error) {
	st, err := r.settings.Load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(st.Aliases))
	for k := range st.Aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, st.Aliases[k]})
	}
	return out, nil
}
