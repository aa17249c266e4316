package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-api/internal/models"
)

func TestGradeLedgerReadPrefersOverlay(t *testing.T) {
	general := models.NewGradeKey("s-1", models.GeneralScope())
	ledger := NewGradeLedger([]models.Grade{{StudentID: "s-1", Value: 3.5}})

	value, ok := ledger.Read(general)
	require.True(t, ok)
	assert.Equal(t, "3.5", value)
	assert.False(t, ledger.IsDirty(general))

	ledger.Write(general, "4")
	value, _ = ledger.Read(general)
	assert.Equal(t, "4", value)
	assert.True(t, ledger.IsDirty(general))

	ledger.Clear(general)
	value, _ = ledger.Read(general)
	assert.Equal(t, "3.5", value)
}

func TestGradeLedgerOverlayOnlyCell(t *testing.T) {
	key := models.NewGradeKey("s-1", models.ActivityScope("a-1"))
	ledger := NewGradeLedger(nil)

	_, ok := ledger.Read(key)
	assert.False(t, ok)

	ledger.Write(key, "abc")
	value, ok := ledger.Read(key)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)
	assert.True(t, ledger.IsDirty(key))
	assert.Equal(t, 1, ledger.DirtyCount())
}

func TestGradeLedgerScopesDoNotCollide(t *testing.T) {
	ledger := NewGradeLedger([]models.Grade{
		{StudentID: "s-1", Value: 2},
		{StudentID: "s-1", ActivityID: strPtr("general"), Value: 5},
	})

	general, _ := ledger.Read(models.NewGradeKey("s-1", models.GeneralScope()))
	activity, _ := ledger.Read(models.NewGradeKey("s-1", models.ActivityScope("general")))
	assert.Equal(t, "2", general)
	assert.Equal(t, "5", activity)
}

func TestGradeLedgerClearIfKeepsNewerEdit(t *testing.T) {
	key := models.NewGradeKey("s-1", models.GeneralScope())
	ledger := NewGradeLedger(nil)
	ledger.Write(key, "4")
	ledger.Write(key, "4.5")

	assert.False(t, ledger.ClearIf(key, "4"))
	assert.True(t, ledger.IsDirty(key))
	assert.True(t, ledger.ClearIf(key, "4.5"))
	assert.False(t, ledger.IsDirty(key))
}

func TestGradeLedgerClearIfAcceptsAnyCommittedValue(t *testing.T) {
	key := models.NewGradeKey("s-1", models.GeneralScope())
	ledger := NewGradeLedger(nil)
	ledger.Write(key, "3")

	assert.True(t, ledger.ClearIf(key, "4.5", "3"))
	assert.False(t, ledger.IsDirty(key))
}

func TestGradeLedgerSwapIf(t *testing.T) {
	key := models.NewGradeKey("s-1", models.GeneralScope())
	ledger := NewGradeLedger(nil)
	ledger.Write(key, "3")

	assert.False(t, ledger.SwapIf(key, "2", "4"))
	assert.True(t, ledger.SwapIf(key, "3", "4"))
	value, _ := ledger.Read(key)
	assert.Equal(t, "4", value)
}

func TestGradeLedgerReplaceSwapsSnapshot(t *testing.T) {
	key := models.NewGradeKey("s-1", models.GeneralScope())
	ledger := NewGradeLedger([]models.Grade{{StudentID: "s-1", Value: 1}})
	ledger.Write(key, "2")

	ledger.Replace([]models.Grade{{StudentID: "s-1", Value: 4}, {StudentID: "s-1", ActivityID: strPtr("a-1"), Value: 5}})

	persisted, ok := ledger.Persisted(key)
	require.True(t, ok)
	assert.Equal(t, 4.0, persisted.Value)
	assert.Len(t, ledger.Grades(), 2)
	assert.True(t, ledger.IsDirty(key))
	require.NotNil(t, ledger.Average("s-1"))
	assert.Equal(t, 4.5, *ledger.Average("s-1"))
}
