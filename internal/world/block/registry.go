package block

import "fmt"

// BlockType идентификатор типа блока. Порядковый номер сохраняется в файл
// одним байтом, поэтому порядок констант менять нельзя.
type BlockType uint8

// Константы типов блоков. Air обязан быть нулевым значением:
// свежевыделенный массив блоков должен быть заполнен воздухом.
const (
	Air BlockType = iota
	Dirt
	Stone
	Diamond
	Bedrock
	Redstone
	Sand
	Leaves
	Wood
	Woodbase
	Water
	Grass

	numTypes // всегда последний
)

// Indestructible значение HP для блоков, которые нельзя разрушить.
const Indestructible uint8 = 255

// CrackLevels количество стадий трещин (0: целый блок).
const CrackLevels = 11

// Properties статические свойства типа блока
type Properties struct {
	Name  string
	MaxHP uint8
}

var registry = make(map[BlockType]Properties, numTypes)

// Register добавляет свойства типа в регистр
func Register(t BlockType, props Properties) {
	registry[t] = props
}

// Get возвращает свойства для указанного типа
func Get(t BlockType) (Properties, bool) {
	props, exists := registry[t]
	return props, exists
}

// IsValid проверяет, является ли t известным типом блока
func IsValid(t BlockType) bool {
	_, exists := registry[t]
	return exists
}

// Count количество известных типов
func Count() int {
	return int(numTypes)
}

func init() {
	Register(Air, Properties{Name: "air", MaxHP: 0})
	Register(Dirt, Properties{Name: "dirt", MaxHP: 6})
	Register(Stone, Properties{Name: "stone", MaxHP: 10})
	Register(Diamond, Properties{Name: "diamond", MaxHP: 16})
	Register(Bedrock, Properties{Name: "bedrock", MaxHP: Indestructible})
	Register(Redstone, Properties{Name: "redstone", MaxHP: 12})
	Register(Sand, Properties{Name: "sand", MaxHP: 4})
	Register(Leaves, Properties{Name: "leaves", MaxHP: 2})
	Register(Wood, Properties{Name: "wood", MaxHP: 8})
	Register(Woodbase, Properties{Name: "woodbase", MaxHP: 8})
	Register(Water, Properties{Name: "water", MaxHP: Indestructible})
	Register(Grass, Properties{Name: "grass", MaxHP: 6})
}

// String возвращает имя типа
func (t BlockType) String() string {
	if props, ok := Get(t); ok {
		return props.Name
	}
	return fmt.Sprintf("blocktype(%d)", uint8(t))
}

// Parse ищет тип по имени
func Parse(name string) (BlockType, error) {
	for t := BlockType(0); t < numTypes; t++ {
		if registry[t].Name == name {
			return t, nil
		}
	}
	return Air, fmt.Errorf("unknown block type %q", name)
}

// MaxHP возвращает максимальное здоровье для типа (0 для неизвестных и воздуха)
func (t BlockType) MaxHP() uint8 {
	return registry[t].MaxHP
}

// IsSolid true для всего, кроме воздуха и воды.
func (t BlockType) IsSolid() bool {
	return t != Air && t != Water
}

// IsTransparent true для соседей, которые открывают грань твёрдого блока.
func (t BlockType) IsTransparent() bool {
	return t == Air || t == Water
}

// IsDestructible false для воздуха, воды и бедрока.
func (t BlockType) IsDestructible() bool {
	hp := t.MaxHP()
	return hp != 0 && hp != Indestructible
}
