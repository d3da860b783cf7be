package ui

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repdata/internal/config"
)

// scriptedAsker answers prompts from queues in call order.
type scriptedAsker struct {
	connections []connectionAnswers
	tables      []tableAnswers
	pipeline    pipelineAnswers
	one         []interface{}
	failAt      int
	calls       int
}

func (s *scriptedAsker) Ask(qs []*survey.Question, response interface{}) error {
	s.calls++
	if s.failAt == s.calls {
		return terminal.InterruptErr
	}
	switch v := response.(type) {
	case *connectionAnswers:
		*v, s.connections = s.connections[0], s.connections[1:]
	case *tableAnswers:
		*v, s.tables = s.tables[0], s.tables[1:]
	case *pipelineAnswers:
		*v = s.pipeline
	default:
		return fmt.Errorf("unexpected response type %T", response)
	}
	return nil
}

func (s *scriptedAsker) AskOne(p survey.Prompt, response interface{}) error {
	s.calls++
	if s.failAt == s.calls {
		return terminal.InterruptErr
	}
	next := s.one[0]
	s.one = s.one[1:]
	switch v := response.(type) {
	case *string:
		*v = next.(string)
	case *bool:
		*v = next.(bool)
	default:
		return fmt.Errorf("unexpected response type %T", response)
	}
	return nil
}

func snowflakeAnswers() *scriptedAsker {
	return &scriptedAsker{
		connections: []connectionAnswers{{
			Account: "xy12345", Username: "loader", Password: "secret",
			Database: "SALES", Schema: "RAW", Warehouse: "WH",
		}},
		tables: []tableAnswers{
			{First: "quote_history", Second: "outbound_calls"},
			{First: "repdata", Second: "attempt_details"},
		},
		pipeline: pipelineAnswers{Strategy: "pushdown", OrganicFilter: "last-entry", OrderingKey: "assigned"},
		// dialect, same destination, keyring, save
		one: []interface{}{"snowflake", true, true, true},
	}
}

func TestConfigWizardSnowflake(t *testing.T) {
	var buf bytes.Buffer
	w := newConfigWizard(snowflakeAnswers(), &buf)

	res, err := w.Run(config.Defaults())
	require.NoError(t, err)

	cfg := res.Config
	assert.True(t, res.UseKeyring)
	assert.Equal(t, "xy12345", cfg.Source.Account)
	assert.Equal(t, "secret", cfg.Source.Password)
	assert.Equal(t, "quote_history", cfg.Source.QuotesTable)
	assert.Equal(t, "outbound_calls", cfg.Source.OutboundsTable)
	assert.Equal(t, cfg.Source.Connection, cfg.Destination.Connection)
	assert.Equal(t, "pushdown", cfg.Pipeline.Strategy)
	assert.Equal(t, "last-entry", cfg.Pipeline.OrganicFilter)
	assert.Equal(t, "assigned", cfg.Pipeline.OrderingKey)
	assert.Equal(t, "30s", cfg.Source.Timeout)
	assert.NoError(t, config.Validate(cfg))

	assert.Contains(t, buf.String(), "[Step 5/5]")
	assert.NotContains(t, buf.String(), "secret")
}

func TestConfigWizardSeparateDestination(t *testing.T) {
	asker := &scriptedAsker{
		connections: []connectionAnswers{{DSN: "/tmp/source.db"}, {DSN: "postgres://report@db/reporting"}},
		tables: []tableAnswers{
			{First: "quotes", Second: "outbounds"},
			{First: "rep", Second: "details"},
		},
		pipeline: pipelineAnswers{Strategy: "memory", OrganicFilter: "last-entry-or-unbound", OrderingKey: "created"},
		// source dialect, same destination, destination dialect, save
		one: []interface{}{"sqlite", false, "postgres", true},
	}

	res, err := newConfigWizard(asker, &bytes.Buffer{}).Run(config.Defaults())
	require.NoError(t, err)

	assert.False(t, res.UseKeyring)
	assert.Equal(t, "sqlite", res.Config.Source.Dialect)
	assert.Equal(t, "/tmp/source.db", res.Config.Source.DSN)
	assert.Equal(t, "postgres", res.Config.Destination.Dialect)
	assert.Equal(t, "rep", res.Config.Destination.RepDataTable)
	assert.Empty(t, res.Config.Destination.Account)
}

func TestConfigWizardCancelled(t *testing.T) {
	tests := []struct {
		name  string
		asker func() *scriptedAsker
	}{
		{
			name: "interrupt",
			asker: func() *scriptedAsker {
				a := snowflakeAnswers()
				a.failAt = 2
				return a
			},
		},
		{
			name: "declined save",
			asker: func() *scriptedAsker {
				a := snowflakeAnswers()
				a.one[len(a.one)-1] = false
				return a
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newConfigWizard(tt.asker(), &bytes.Buffer{}).Run(config.Defaults())
			assert.ErrorIs(t, err, ErrWizardCancelled)
		})
	}
}
