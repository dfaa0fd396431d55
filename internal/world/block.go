package world

import (
	"github.com/annel0/blockverse/internal/world/block"
)

// Block представляет собой блок в сетке мира. Хранится по значению в
// плоском массиве; нулевое значение: воздух.
type Block struct {
	Type        block.BlockType // Тип блока
	Faces       block.Faces     // Открытые грани, которые нужно рисовать
	HP          uint8           // Оставшееся здоровье
	HealthLevel uint8           // Стадия трещин 0..CrackLevels-1, кешируется
}

// NewBlock создаёт целый блок указанного типа без открытых граней
func NewBlock(t block.BlockType) Block {
	return Block{
		Type: t,
		HP:   t.MaxHP(),
	}
}

// IsAir возвращает true для воздуха
func (b Block) IsAir() bool {
	return b.Type == block.Air
}

// HealthLevelFor переводит оставшееся здоровье в стадию трещин.
// Неразрушаемые блоки и воздух всегда на стадии 0.
func HealthLevelFor(t block.BlockType, hp uint8) uint8 {
	max := t.MaxHP()
	if max == 0 || max == block.Indestructible {
		return 0
	}
	if hp >= max {
		return 0
	}
	damage := int(max) - int(hp)
	return uint8(damage * (block.CrackLevels - 1) / int(max))
}
