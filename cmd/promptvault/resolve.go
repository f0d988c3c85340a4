package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/promptvault/pkg/core"
)

// resolveID accepts a full prompt ID or an unambiguous prefix of one.
func resolveID(ctx context.Context, svc *core.Service, ref string) (string, error) {
	prompts, err := svc.ListPrompts(ctx, core.ListOptions{})
	if err != nil {
		return "", err
	}
	return matchID(prompts, ref)
}

func matchID(prompts []core.Prompt, ref string) (string, error) {
	var found []string
	for _, p := range prompts {
		if p.ID == ref {
			return p.ID, nil
		}
		if ref != "" && strings.HasPrefix(p.ID, ref) {
			found = append(found, p.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: prompt %s", core.ErrNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("prompt reference %q is ambiguous (%d matches)", ref, len(found))
	}
}
