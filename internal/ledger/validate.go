package ledger

import (
	"fmt"

	"cashflow/internal/core"
)

// CheckParent validates the parent of a new category against the existing
// ones. The parent must exist and must be a root.
func CheckParent(c core.Category, existing []core.Category) error {
	if c.ParentID == nil {
		return nil
	}
	for _, e := range existing {
		if e.ID != *c.ParentID {
			continue
		}
		if e.ParentID != nil {
			return fmt.Errorf("parent %d is a child of %d: %w", e.ID, *e.ParentID, core.ErrCategoryTooDeep)
		}
		return nil
	}
	return fmt.Errorf("parent %d: %w", *c.ParentID, core.ErrUnknownParent)
}
