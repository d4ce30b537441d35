package render

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"llamate/internal/config"
	"llamate/pkg/types"
)

// zlog is an optional structured logger for render warnings.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used for per-model render warnings.
func SetLogger(l zerolog.Logger) { zlog = &l }

func warnf(format string, a ...any) {
	if zlog != nil {
		zlog.Warn().Msgf(format, a...)
	}
}

// Render maps the global settings plus a snapshot of all model records into a
// supervisor document. Pure: no I/O, deterministic for equal inputs.
//
// defaultServerBin is used when settings carry no serving binary path.
func Render(st config.Settings, defaultServerBin string, models map[string]types.ModelRecord) types.Document {
	doc := types.Document{
		HealthCheckTimeout: st.HealthCheckTimeout,
		LogLevel:           st.LogLevel,
		StartPort:          st.StartPort,
		Macros:             st.Macros,
		Groups:             map[string]any{},
	}
	if st.Groups != nil {
		doc.Groups = st.Groups
	}

	serverBin := st.ServerBinPath
	if serverBin == "" {
		serverBin = defaultServerBin
	}

	if len(models) == 0 {
		return doc
	}
	doc.Models = make(map[string]types.ModelEntry, len(models))
	for name, rec := range models {
		doc.Models[name] = renderModel(name, rec, serverBin, st.GGUFDir)
	}
	return doc
}

func renderModel(name string, rec types.ModelRecord, serverBin, ggufDir string) types.ModelEntry {
	parts := []string{
		serverBin,
		"--model " + filepath.Join(ggufDir, rec.ArtifactFile),
	}

	// Sorted so the rendered cmd does not depend on map iteration order.
	keys := make([]string, 0, len(rec.Args))
	for k := range rec.Args {
		if k == "proxy" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := rec.Args[k]; v == "true" {
			parts = append(parts, "--"+k)
		} else {
			parts = append(parts, fmt.Sprintf("--%s %s", k, v))
		}
	}

	// A fixed per-model port is communicated through the proxy URL's port.
	// A malformed URL only costs this model its --port fragment.
	if rec.Proxy != "" {
		if u, err := url.Parse(rec.Proxy); err != nil {
			warnf("model %s: bad proxy url %q: %v", name, rec.Proxy, err)
		} else if port := u.Port(); port != "" {
			parts = append(parts, "--port "+port)
		}
	}

	entry := types.ModelEntry{Cmd: strings.Join(parts, " ")}
	if rec.Proxy != "" {
		entry.Proxy = rec.Proxy
	} else if p, ok := rec.Args["proxy"]; ok {
		entry.Proxy = p
	}
	if len(rec.Extra) > 0 {
		entry.Extra = make(map[string]any, len(rec.Extra))
		for k, v := range rec.Extra {
			entry.Extra[k] = v
		}
	}
	return entry
}
