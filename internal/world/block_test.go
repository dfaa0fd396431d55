package world

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/blockverse/internal/world/block"
)

func TestNewBlockFullHealth(t *testing.T) {
	b := NewBlock(block.Stone)
	assert.Equal(t, block.Stone.MaxHP(), b.HP)
	assert.Equal(t, uint8(0), b.HealthLevel)
	assert.True(t, b.Faces.Empty())

	var zero Block
	assert.True(t, zero.IsAir(), "нулевой блок должен быть воздухом")
}

func TestHealthLevelFor(t *testing.T) {
	tests := []struct {
		name string
		t    block.BlockType
		hp   uint8
		want uint8
	}{
		{"целый", block.Dirt, 6, 0},
		{"половина", block.Dirt, 3, 5},
		{"почти разрушен", block.Dirt, 1, 8},
		{"ноль", block.Dirt, 0, 10},
		{"камень одна единица", block.Stone, 9, 1},
		{"бедрок", block.Bedrock, 10, 0},
		{"воздух", block.Air, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HealthLevelFor(tt.t, tt.hp))
		})
	}
}

func TestHealthLevelWithinCrackStrip(t *testing.T) {
	for bt := block.BlockType(0); int(bt) < block.Count(); bt++ {
		for hp := 0; hp <= int(bt.MaxHP()); hp++ {
			level := HealthLevelFor(bt, uint8(hp))
			if int(level) >= block.CrackLevels {
				t.Fatalf("%s hp=%d: стадия %d вне полосы трещин", bt, hp, level)
			}
		}
	}
}
