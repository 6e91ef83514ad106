package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/domain/entity"
)

func TestRegistry_Plan_Order(t *testing.T) {
	r := NewRegistry(scenarioConfig())

	plan := r.Plan([]string{"A", "B"})

	assert.Equal(t, []entity.Candidate{
		local(endpointDown, "A"),
		local(endpointDown, "B"),
		local(endpointUp, "A"),
		local(endpointUp, "B"),
		hosted(),
	}, plan)
}

func TestRegistry_Plan_HostedFirst(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Priority = []string{"cloud", "local"}
	cfg.Local.EndpointURLs = []string{endpointUp}

	plan := NewRegistry(cfg).Plan([]string{"A"})

	assert.Equal(t, []entity.Candidate{hosted(), local(endpointUp, "A")}, plan)
}

func TestRegistry_Priority(t *testing.T) {
	tests := []struct {
		name     string
		priority []string
		hosted   bool
		want     []entity.BackendKind
	}{
		{
			name:     "configured order",
			priority: []string{"hosted", "local"},
			hosted:   true,
			want:     []entity.BackendKind{entity.BackendHosted, entity.BackendLocal},
		},
		{
			name:     "hosted dropped when disabled",
			priority: []string{"local", "hosted"},
			hosted:   false,
			want:     []entity.BackendKind{entity.BackendLocal},
		},
		{
			name:     "unknown and duplicate entries ignored",
			priority: []string{"gpu-farm", "local", "local"},
			hosted:   true,
			want:     []entity.BackendKind{entity.BackendLocal},
		},
		{
			name:     "empty falls back to default",
			priority: nil,
			hosted:   true,
			want:     []entity.BackendKind{entity.BackendLocal, entity.BackendHosted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioConfig()
			cfg.Priority = tt.priority
			cfg.Hosted.Enabled = tt.hosted

			assert.Equal(t, tt.want, NewRegistry(cfg).Priority())
		})
	}
}

func TestRegistry_Empty(t *testing.T) {
	empty := config.DefaultGenerationConfig()
	assert.True(t, NewRegistry(&empty).Empty())

	noModels := config.DefaultGenerationConfig()
	noModels.Local.EndpointURLs = []string{endpointUp}
	assert.True(t, NewRegistry(&noModels).Empty())

	hostedOnly := config.DefaultGenerationConfig()
	hostedOnly.Hosted.Enabled = true
	assert.False(t, NewRegistry(&hostedOnly).Empty())

	assert.False(t, NewRegistry(scenarioConfig()).Empty())
}

func TestRegistry_AccessorsReturnCopies(t *testing.T) {
	r := NewRegistry(scenarioConfig())

	models := r.LocalModels()
	models[0] = "mutated"
	endpoints := r.LocalEndpoints()
	endpoints[0] = "mutated"

	assert.Equal(t, []string{"A", "B"}, r.LocalModels())
	assert.Equal(t, []string{endpointDown, endpointUp}, r.LocalEndpoints())
	assert.Equal(t, "A", r.DefaultModel())
}
