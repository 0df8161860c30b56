package constants

// MaterialVocabulary lists the materials recognised in product names, in the order
// they are reported.
var MaterialVocabulary = []Keyword{
	{"madeira macica", "Madeira Maciça"},
	{"madeira", "Madeira"},
	{"mdf", "MDF"},
	{"mdp", "MDP"},
	{"compensado", "Compensado"},
	{"laminado", "Laminado"},
	{"carvalho", "Carvalho"},
	{"nogueira", "Nogueira"},
	{"freijo", "Freijó"},
	{"jequitiba", "Jequitibá"},
	{"eucalipto", "Eucalipto"},
	{"pinus", "Pinus"},
	{"teca", "Teca"},
	{"metal", "Metal"},
	{"aco inox", "Aço Inox"},
	{"aco", "Aço"},
	{"ferro", "Ferro"},
	{"aluminio", "Alumínio"},
	{"latao", "Latão"},
	{"vidro", "Vidro"},
	{"espelho", "Espelho"},
	{"marmore", "Mármore"},
	{"granito", "Granito"},
	{"pedra", "Pedra"},
	{"couro", "Couro"},
	{"linho", "Linho"},
	{"veludo", "Veludo"},
	{"suede", "Suede"},
	{"tecido", "Tecido"},
	{"palhinha", "Palhinha"},
	{"rattan", "Rattan"},
	{"vime", "Vime"},
	{"corda", "Corda"},
	{"laca", "Laca"},
	{"acrilico", "Acrílico"},
	{"plastico", "Plástico"},
	{"polipropileno", "Polipropileno"},
	{"fibra", "Fibra"},
}
