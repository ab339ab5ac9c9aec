package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mdonmez/autoso/internal/config"
)

func baseDiffConfig() *config.Config {
	return config.Default()
}

func TestDiff_NoChanges(t *testing.T) {
	old := baseDiffConfig()
	newCfg := baseDiffConfig()

	d := config.Diff(old, newCfg)
	assert.False(t, d.LogLevelChanged)
	assert.False(t, d.MatcherChanged)
}

func TestDiff_LogLevelChanged(t *testing.T) {
	old := baseDiffConfig()
	newCfg := baseDiffConfig()
	newCfg.Server.LogLevel = config.LogDebug

	d := config.Diff(old, newCfg)
	assert.True(t, d.LogLevelChanged)
	assert.Equal(t, config.LogDebug, d.NewLogLevel)
}

func TestDiff_MatcherWeightsChanged(t *testing.T) {
	old := baseDiffConfig()
	newCfg := baseDiffConfig()
	newCfg.Matcher.SemanticWeight = 0.5
	newCfg.Matcher.PhoneticWeight = 0.5

	d := config.Diff(old, newCfg)
	assert.True(t, d.MatcherChanged)
	assert.Equal(t, 0.5, d.NewMatcher.SemanticWeight)
}

func TestDiff_MatcherTopKChanged(t *testing.T) {
	old := baseDiffConfig()
	newCfg := baseDiffConfig()
	newCfg.Matcher.TopK = 10

	d := config.Diff(old, newCfg)
	assert.True(t, d.MatcherChanged)
	assert.Equal(t, 10, d.NewMatcher.TopK)
}

func TestDiff_MatcherScoreFloorChanged(t *testing.T) {
	old := baseDiffConfig()
	newCfg := baseDiffConfig()
	newCfg.Matcher.ScoreFloor = 0.1

	d := config.Diff(old, newCfg)
	assert.True(t, d.MatcherChanged)
}

func TestDiff_MultipleChanges(t *testing.T) {
	old := baseDiffConfig()
	newCfg := baseDiffConfig()
	newCfg.Server.LogLevel = config.LogWarn
	newCfg.Matcher.TopK = 3

	d := config.Diff(old, newCfg)
	assert.True(t, d.LogLevelChanged)
	assert.True(t, d.MatcherChanged)
}

func TestDiff_DoesNotTrackASROrActuatorChanges(t *testing.T) {
	old := baseDiffConfig()
	newCfg := baseDiffConfig()
	newCfg.ASR.Engine = config.ASREngineMock
	newCfg.Actuator.Kind = config.ActuatorKindRemote
	newCfg.Actuator.RemoteURL = "ws://example.invalid"

	d := config.Diff(old, newCfg)
	assert.False(t, d.LogLevelChanged)
	assert.False(t, d.MatcherChanged)
}
