package constants

// DefaultCategory is assigned when nothing in a row points at a category.
const DefaultCategory = "Móveis"

// Keyword pairs a lowercase, accent-free keyword with the label it implies.
type Keyword struct {
	Keyword string
	Label   string
}

// CategoryKeywords is matched against product names and manufacturers. Order
// matters: the first keyword found wins, so compound terms come before the words
// they contain.
var CategoryKeywords = []Keyword{
	{"sofa cama", "Sofás"},
	{"sofa", "Sofás"},
	{"chaise", "Sofás"},
	{"recamier", "Sofás"},
	{"poltrona", "Poltronas"},
	{"cadeira de escritorio", "Escritório"},
	{"cadeira gamer", "Escritório"},
	{"cadeira", "Cadeiras"},
	{"banqueta", "Banquetas"},
	{"banco", "Banquetas"},
	{"puff", "Puffs"},
	{"pufe", "Puffs"},
	{"mesa de centro", "Mesas de Centro"},
	{"mesa lateral", "Mesas Laterais"},
	{"mesa de cabeceira", "Quarto"},
	{"criado mudo", "Quarto"},
	{"criado-mudo", "Quarto"},
	{"escrivaninha", "Escritório"},
	{"mesa", "Mesas"},
	{"aparador", "Aparadores"},
	{"buffet", "Aparadores"},
	{"rack", "Racks e Painéis"},
	{"painel", "Racks e Painéis"},
	{"estante", "Estantes"},
	{"prateleira", "Estantes"},
	{"cama", "Quarto"},
	{"colchao", "Quarto"},
	{"cabeceira", "Quarto"},
	{"guarda-roupa", "Quarto"},
	{"guarda roupa", "Quarto"},
	{"comoda", "Quarto"},
	{"armario", "Armários"},
	{"cristaleira", "Armários"},
	{"luminaria", "Iluminação"},
	{"pendente", "Iluminação"},
	{"abajur", "Iluminação"},
	{"lustre", "Iluminação"},
	{"tapete", "Decoração"},
	{"espelho", "Decoração"},
	{"quadro", "Decoração"},
	{"vaso", "Decoração"},
	{"almofada", "Decoração"},
	{"cortina", "Decoração"},
}
