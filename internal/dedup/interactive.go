package dedup

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// ErrDedupCancelled is returned when the user cancels the interactive
// resolution prompt (Ctrl+C).
var ErrDedupCancelled = errors.New("deduplication cancelled by user")

// wizardWidth matches the form width the rest of the CLI's interactive
// prompts use.
const wizardWidth = 80

// DescribeFunc renders one candidate uuid as a human-readable line (title,
// due date, list/file) for display in the multi-select.
type DescribeFunc func(uuid string) string

// NewInteractivePrompter returns a Prompter that shows each cluster as a
// multi-select of its members, pre-checked, and keeps whichever subset the
// user leaves checked. Declining to uncheck anything keeps the whole
// cluster — the documented "skip" behavior.
func NewInteractivePrompter(describe DescribeFunc) Prompter {
	return func(cluster Cluster) ([]string, error) {
		options := make([]huh.Option[string], len(cluster.UUIDs))
		kept := append([]string{}, cluster.UUIDs...)
		for i, uuid := range cluster.UUIDs {
			label := uuid
			if describe != nil {
				label = describe(uuid)
			}
			options[i] = huh.NewOption(label, uuid).Selected(true)
		}

		err := huh.NewForm(
			huh.NewGroup(
				huh.NewMultiSelect[string]().
					Title("Possible duplicate tasks — keep which ones?").
					Description("Use space to toggle, enter to confirm. Unchecked records are deleted.").
					Options(options...).
					Value(&kept),
			),
		).
			WithTheme(huh.ThemeCharm()).
			WithWidth(wizardWidth).
			Run()
		if err != nil {
			return nil, mapPromptErr(err)
		}
		if len(kept) == 0 {
			return nil, fmt.Errorf("dedup: at least one record in a cluster must be kept")
		}
		return kept, nil
	}
}

// mapPromptErr converts huh-specific errors into ErrDedupCancelled so
// callers don't need to import huh themselves.
func mapPromptErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrDedupCancelled
	}
	return fmt.Errorf("dedup prompt: %w", err)
}
