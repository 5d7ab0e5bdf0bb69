package evaluation

import (
	"fmt"

	"github.com/kailas-cloud/newsdex/internal/domain/article"
)

// Topic is a hand-written query theme with the keywords that identify it.
type Topic struct {
	Name     string
	Keywords []string
}

var sectionTopics = map[article.Section][]Topic{
	article.Economy: {
		{"apreciación del peso", []string{"peso", "dólar", "tipo de cambio", "mercado cambiario"}},
		{"dólar MEP", []string{"dólar", "mep", "bolsa", "bonos"}},
		{"pesquera china", []string{"pesca", "china", "mar", "buques"}},
		{"pymes caputo", []string{"pymes", "caputo", "empresas", "impuestos"}},
		{"transferencia de emisiones", []string{"emisiones", "carbono", "clima", "ambiente"}},
	},
	article.International: {
		{"cambio climático", []string{"clima", "calentamiento", "emisiones", "ambiente"}},
		{"reloj de oro del titanic", []string{"titanic", "reloj", "subasta", "naufragio"}},
		{"seguridad social en estados unidos", []string{"seguridad social", "eeuu", "pensiones", "jubilación"}},
		{"g20 brasil", []string{"g20", "brasil", "cumbre", "lula"}},
		{"donald trump", []string{"trump", "elecciones", "eeuu", "republicano"}},
	},
	article.Politics: {
		{"congreso nacional", []string{"congreso", "diputados", "senadores", "leyes"}},
		{"Emanuel Macron", []string{"macron", "francia", "europa", "presidente"}},
		{"kirchnerismo", []string{"kirchner", "peronismo", "política", "justicia"}},
		{"Estados Unidos", []string{"eeuu", "biden", "washington", "política"}},
		{"Cristina Kirchner", []string{"cristina", "kirchner", "senado", "justicialismo"}},
	},
	article.Society: {
		{"Lionsgate", []string{"lionsgate", "cine", "película", "entertainment"}},
		{"Efemérides", []string{"efemérides", "historia", "aniversario", "conmemoración"}},
		{"hormigas voladoras", []string{"hormigas", "insectos", "naturaleza", "clima"}},
		{"clima", []string{"temperatura", "lluvia", "pronóstico", "meteorología"}},
		{"Andrea Giunta", []string{"arte", "cultura", "exposición", "museo"}},
	},
}

var crossSectionTopics = []Topic{
	{"crisis económica", []string{"crisis", "economía", "inflación", "recesión"}},
	{"presupuesto nacional", []string{"presupuesto", "gasto", "congreso", "fiscal"}},
	{"políticas públicas", []string{"política", "estado", "gestión", "gobierno"}},
	{"impacto social", []string{"social", "sociedad", "impacto", "comunidad"}},
}

// promptVariations phrases a topic the way a reader would ask for it.
func promptVariations(topic string) []string {
	return []string{
		fmt.Sprintf("noticias sobre %s", topic),
		fmt.Sprintf("información de %s", topic),
		fmt.Sprintf("últimas noticias de %s", topic),
		fmt.Sprintf("actualidad sobre %s", topic),
		topic,
	}
}
