package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionState_Validate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	open := NewPositionState("BTCUSDT").Opened(SideLong, decimal.NewFromInt(100), decimal.RequireFromString("0.001"), "1", now)

	tests := []struct {
		name    string
		state   PositionState
		mode    Mode
		wantErr bool
	}{
		{name: "zeroed flat", state: NewPositionState("BTCUSDT"), mode: ModeSpot},
		{name: "open long", state: open, mode: ModeSpot},
		{
			name: "flat with entry price",
			state: PositionState{
				Symbol:     "BTCUSDT",
				EntryPrice: decimal.NewFromInt(1),
			},
			mode:    ModeSpot,
			wantErr: true,
		},
		{
			name: "flat with dynamic stop",
			state: PositionState{
				DynamicStop: decimal.NewNullDecimal(decimal.NewFromInt(1)),
			},
			mode:    ModeFutures,
			wantErr: true,
		},
		{
			name: "partial lock without breakeven",
			state: func() PositionState {
				s := open
				s.MovedToPartialLock = true
				return s
			}(),
			mode:    ModeSpot,
			wantErr: true,
		},
		{
			name: "short in spot mode",
			state: func() PositionState {
				s := open
				s.Side = SideShort
				return s
			}(),
			mode:    ModeSpot,
			wantErr: true,
		},
		{
			name: "short in futures mode",
			state: func() PositionState {
				s := open
				s.Side = SideShort
				return s
			}(),
			mode: ModeFutures,
		},
		{
			name: "open without side",
			state: func() PositionState {
				s := open
				s.Side = SideNone
				return s
			}(),
			mode:    ModeFutures,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate(tt.mode)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPositionState)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPositionState_InCooldown(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewPositionState("BTCUSDT")
	assert.False(t, s.InCooldown(t0, 3*time.Minute), "unset last trade time never cools down")

	s.LastTradeTime = t0
	assert.True(t, s.InCooldown(t0.Add(2*time.Minute+59*time.Second), 3*time.Minute))
	assert.False(t, s.InCooldown(t0.Add(3*time.Minute), 3*time.Minute))
}

func TestPositionState_Gain(t *testing.T) {
	now := time.Now()
	long := NewPositionState("X").Opened(SideLong, decimal.NewFromInt(100), decimal.NewFromInt(1), "", now)
	short := NewPositionState("X").Opened(SideShort, decimal.NewFromInt(100), decimal.NewFromInt(1), "", now)

	assert.True(t, long.Gain(decimal.RequireFromString("102.5")).Equal(decimal.RequireFromString("1.025")))
	assert.True(t, short.Gain(decimal.NewFromInt(80)).Equal(decimal.RequireFromString("1.25")))
}

func TestPositionState_OpenedAndClosed(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewPositionState("BTCUSDT")
	s.DynamicStop = decimal.NewNullDecimal(decimal.NewFromInt(1))

	opened := s.Opened(SideLong, decimal.NewFromInt(99), decimal.NewFromInt(2), "42", t0)
	require.NoError(t, opened.Validate(ModeSpot))
	assert.False(t, opened.DynamicStop.Valid)
	assert.False(t, opened.MovedToBreakeven)
	assert.Equal(t, t0, opened.LastTradeTime)

	opened.MovedToBreakeven = true
	opened.MovedToPartialLock = true
	t1 := t0.Add(10 * time.Minute)
	closed := opened.Closed(t1)
	require.NoError(t, closed.Validate(ModeSpot))
	assert.Equal(t, "BTCUSDT", closed.Symbol)
	assert.Equal(t, t1, closed.LastTradeTime)
	assert.True(t, closed.EntryPrice.IsZero())
}

func TestPositionState_TimestampsTruncatedToMicroseconds(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewPositionState("BTCUSDT")

	opened := s.Opened(SideShort, decimal.NewFromInt(100), decimal.NewFromInt(1), "7", t0.Add(1500*time.Nanosecond))
	assert.Equal(t, t0.Add(time.Microsecond), opened.OpenedAt)
	assert.Equal(t, t0.Add(time.Microsecond), opened.LastTradeTime)

	closed := opened.Closed(t0.Add(time.Second + 999*time.Nanosecond))
	assert.Equal(t, t0.Add(time.Second), closed.LastTradeTime)

	rec := NewClosedTradeRecord(opened, decimal.NewFromInt(99), decimal.NewFromInt(1), ExitTakeProfit, "8", t0.Add(2*time.Second+1))
	assert.Equal(t, t0.Add(2*time.Second), rec.Timestamp)
}

func TestPositionState_EffectiveStop(t *testing.T) {
	static := decimal.RequireFromString("0.98")
	s := PositionState{}
	assert.True(t, s.EffectiveStop(static).Equal(static))

	s.DynamicStop = decimal.NewNullDecimal(decimal.NewFromInt(1))
	assert.True(t, s.EffectiveStop(static).Equal(decimal.NewFromInt(1)))
}
