package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Executor evaluates JavaScript in the connected page and returns the JSON
// value the expression produced. The relay server satisfies this.
type Executor interface {
	Execute(ctx context.Context, code string) (json.RawMessage, error)
}

// Result is the single terminal outcome of one Deploy call.
type Result struct {
	Action string // "created" or "reloaded"
	ID     string // instance ID (created only)
	URL    string // instance URL (created only)
	Count  int    // instances updated (reloaded only)
}

// Deployer creates or hot-reloads plugin instances in the connected space.
type Deployer struct {
	Exec Executor
}

// Deploy ships plugin source to the space. When the source declares an
// identity and forceNew is false, existing instances with the same identity
// are reloaded in place; otherwise a new instance is created. Exactly one of
// the two paths runs per call.
func (d *Deployer) Deploy(ctx context.Context, name, code string, forceNew bool) (*Result, error) {
	if err := CheckSyntax(name, code); err != nil {
		return nil, err
	}

	identity := ExtractIdentity(code)
	if identity == "" {
		slog.Warn("no scriptName declaration found, hot-reload unavailable", "file", name)
	}

	if identity != "" && !forceNew {
		ids, err := d.findDeployed(ctx, identity)
		if err != nil {
			// A failed query is not fatal: fall through and create.
			slog.Debug("deployed-instance query failed", "identity", identity, "error", err)
		} else if len(ids) > 0 {
			return d.reloadAll(ctx, ids, code)
		}
	}

	return d.create(ctx, code)
}

// findDeployed asks the page for IDs of deployed instances sharing identity.
func (d *Deployer) findDeployed(ctx context.Context, identity string) ([]string, error) {
	query := fmt.Sprintf(`(() => {
  const out = [];
  for (const p of ArrivalSpace.plugins.list()) {
    if (p.scriptName === %q) out.push(p.id);
  }
  return out;
})()`, identity)

	raw, err := d.Exec.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("parse instance list: %w", err)
	}
	return ids, nil
}

// reloadAll updates each matched instance in place. The aggregate outcome is
// success if any instance reloaded; per-instance failures are logged.
func (d *Deployer) reloadAll(ctx context.Context, ids []string, code string) (*Result, error) {
	escaped := EscapeForTemplate(code)

	var lastErr error
	reloaded := 0
	for _, id := range ids {
		expr := fmt.Sprintf("ArrivalSpace.plugins.reload(%q, `%s`)", id, escaped)
		if _, err := d.Exec.Execute(ctx, expr); err != nil {
			slog.Warn("instance reload failed", "id", id, "error", err)
			lastErr = err
			continue
		}
		reloaded++
	}

	if reloaded == 0 {
		return nil, fmt.Errorf("reload failed for all %d instance(s): %w", len(ids), lastErr)
	}
	return &Result{Action: "reloaded", Count: reloaded}, nil
}

// create deploys a fresh instance and reports its ID and URL.
func (d *Deployer) create(ctx context.Context, code string) (*Result, error) {
	escaped := EscapeForTemplate(code)
	expr := fmt.Sprintf(`(() => {
  const p = ArrivalSpace.plugins.create(`+"`%s`"+`);
  return { id: p.id, url: p.url };
})()`, escaped)

	raw, err := d.Exec.Execute(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	var created struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("parse create result: %w", err)
	}
	return &Result{Action: "created", ID: created.ID, URL: created.URL}, nil
}
