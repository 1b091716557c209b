package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/docket/id"
)

func TestInClauseNumbersFromStart(t *testing.T) {
	a, b, c := id.NewTimeEntryID(), id.NewTimeEntryID(), id.NewTimeEntryID()

	marks, args := inClause(3, []id.TimeEntryID{a, b, c})

	assert.Equal(t, "$3, $4, $5", marks)
	assert.Equal(t, []any{a.String(), b.String(), c.String()}, args)
}
