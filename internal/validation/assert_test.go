package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starbank/recommender/internal/validation"
)

type repo interface{ Name() string }

type fakeRepo struct{}

func (*fakeRepo) Name() string { return "fake" }

func TestAssertNotNil(t *testing.T) {
	assert.PanicsWithValue(t, "critical error: engine cannot be nil", func() {
		var p *int
		validation.AssertNotNil(p, "engine")
	})
	assert.NotPanics(t, func() {
		validation.AssertNotNil(new(int), "engine")
	})
}

func TestAssertPresent(t *testing.T) {
	t.Run("Should panic on untyped nil", func(t *testing.T) {
		assert.Panics(t, func() {
			var r repo
			validation.AssertPresent(r, "repo")
		})
	})

	t.Run("Should panic on typed nil pointer", func(t *testing.T) {
		assert.Panics(t, func() {
			var f *fakeRepo
			var r repo = f
			validation.AssertPresent(r, "repo")
		})
	})

	t.Run("Should accept a real implementation", func(t *testing.T) {
		assert.NotPanics(t, func() {
			validation.AssertPresent(&fakeRepo{}, "repo")
		})
	})
}
