// Package senado fetches newly filed matérias from the Senado Federal
// open-data API, with HTML page fallbacks for authorship and documents.
package senado

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/civimetrics/plenario/internal/provider"
	"github.com/civimetrics/plenario/pkg/plenario/ingest"
	"github.com/civimetrics/plenario/pkg/plenario/norm"
)

const (
	DefaultBaseURL     = "https://legis.senado.leg.br/dadosabertos"
	DefaultPageBaseURL = "https://www25.senado.leg.br/web/atividade/materias/-/materia/"
)

// Client talks to the Senado API.
type Client struct {
	BaseURL     string
	PageBaseURL string
	HTTP        *provider.HTTPClient
	Logger      *log.Logger

	// Today stamps the search window; defaults to time.Now.
	Today func() time.Time
}

// New creates a Senado client.
func New(baseURL string, httpc *provider.HTTPClient, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:     baseURL,
		PageBaseURL: DefaultPageBaseURL,
		HTTP:        httpc,
		Logger:      logger,
	}
}

// FetchNew lists the matérias presented today.
func (c *Client) FetchNew(ctx context.Context) ([]ingest.SenadoBill, error) {
	day := time.Now()
	if c.Today != nil {
		day = c.Today()
	}
	date := day.Format("20060102")

	params := url.Values{
		"dataInicioApresentacao": {date},
		"dataFimApresentacao":    {date},
	}
	j, err := c.HTTP.GetJSON(ctx, c.BaseURL+"/materia/pesquisa/lista.json", params)
	if err != nil {
		return nil, err
	}

	// The response nests the matéria list at different depths depending on
	// result shape; the candidates are tried in priority order.
	materias := provider.Dig(j, "PesquisaBasicaMateria", "Materias", "Materia")
	if materias == nil {
		materias = provider.Dig(j, "PesquisaBasicaMateria", "Materia")
	}
	if materias == nil {
		materias = provider.Dig(j, "Materias", "Materia")
	}
	if materias == nil {
		materias = j["Materia"]
	}

	var bills []ingest.SenadoBill
	for _, item := range provider.AsList(materias) {
		m := provider.AsMap(item)
		if m == nil {
			continue
		}
		bills = append(bills, c.buildBill(ctx, m))
	}
	return bills, nil
}

func (c *Client) buildBill(ctx context.Context, m map[string]any) ingest.SenadoBill {
	dados := provider.AsMap(m["DadosBasicosMateria"])
	ident := provider.AsMap(m["IdentificacaoMateria"])

	code := provider.FirstString(m, "Codigo")
	if code == "" && ident != nil {
		code = provider.FirstString(ident, "CodigoMateria")
	}

	sigla := provider.FirstString(m, "Sigla")
	if sigla == "" && dados != nil {
		sigla = provider.FirstString(dados, "SiglaSubtipoMateria", "SiglaMateria")
	}
	if sigla == "" && ident != nil {
		sigla = provider.FirstString(ident, "SiglaSubtipoMateria", "SiglaMateria")
	}

	numero := provider.FirstString(m, "Numero")
	if numero == "" && dados != nil {
		numero = provider.FirstString(dados, "NumeroMateria")
	}
	if numero == "" && ident != nil {
		numero = provider.FirstString(ident, "NumeroMateria")
	}

	ano := provider.FirstString(m, "Ano")
	if ano == "" && dados != nil {
		ano = provider.FirstString(dados, "AnoMateria")
	}
	if ano == "" && ident != nil {
		ano = provider.FirstString(ident, "AnoMateria")
	}

	data := provider.FirstString(m, "Data")
	if data == "" && dados != nil {
		data = provider.FirstString(dados, "DataApresentacao")
	}
	if data == "" {
		data = provider.FirstString(m, "DataApresentacao")
	}

	ementa := provider.FirstString(m, "Ementa")
	if ementa == "" && dados != nil {
		ementa = provider.FirstString(dados, "EmentaMateria")
	}
	if ementa == "" {
		ementa = provider.FirstString(m, "EmentaMateria")
	}

	return ingest.SenadoBill{
		Code:        code,
		Type:        sigla,
		Number:      numero,
		Year:        ano,
		Presented:   data,
		Summary:     ementa,
		AuthorText:  provider.FirstString(m, "Autor"),
		Authors:     structuredAuthors(m),
		DocumentURL: c.documentURL(ctx, code),
	}
}

// structuredAuthors reads the Autoria/Autores blocks when the API carries
// them.
func structuredAuthors(m map[string]any) []ingest.Author {
	var out []ingest.Author
	for _, block := range []string{"Autoria", "Autores"} {
		b := provider.AsMap(m[block])
		if b == nil {
			continue
		}
		for _, item := range provider.AsList(b["Autor"]) {
			a := provider.AsMap(item)
			if a == nil {
				continue
			}
			name := provider.FirstString(a, "NomeAutor", "NomeParlamentar")
			if name == "" {
				continue
			}
			out = append(out, ingest.Author{
				Name:  name,
				Party: provider.FirstString(a, "SiglaPartidoAutor", "SiglaPartido", "PartidoAutor", "Partido"),
				UF:    provider.FirstString(a, "UfAutor", "SiglaUF", "UF"),
			})
		}
	}
	return out
}

// FirstAuthorship scrapes the matéria's public page for the first "Autoria"
// field. Used when the API's author field merely names the other chamber.
func (c *Client) FirstAuthorship(ctx context.Context, code string) (string, bool) {
	body, status, err := c.HTTP.Get(ctx, c.PageBaseURL+code, nil)
	if err != nil || status != 200 {
		c.logf("authorship page %s: status %d err %v", code, status, err)
		return "", false
	}
	v := firstAuthorshipFromHTML(body)
	return v, v != ""
}

// textosEndpoints are the known URL variants for a matéria's text listing.
func (c *Client) textosEndpoints(code string) []string {
	return []string{
		c.BaseURL + "/materia/textos/" + code + ".json",
		c.BaseURL + "/materia/" + code + "/textos.json",
		c.BaseURL + "/materia/" + code + ".json",
	}
}

// documentURL resolves the full-text document for a matéria: the "avulso
// inicial" text wins, then preferred PDF descriptions, then any PDF, then
// any link, with the public page anchors as the last resort.
func (c *Client) documentURL(ctx context.Context, code string) string {
	if code == "" {
		return ""
	}
	textos := c.textos(ctx, code)
	if u := pickDocument(textos); u != "" {
		return u
	}
	body, status, err := c.HTTP.Get(ctx, c.PageBaseURL+code, nil)
	if err != nil || status != 200 {
		return ""
	}
	return documentFromHTML(body)
}

func (c *Client) textos(ctx context.Context, code string) []map[string]any {
	for _, endpoint := range c.textosEndpoints(code) {
		j, err := c.HTTP.GetJSON(ctx, endpoint, nil)
		if err != nil {
			continue
		}
		list := provider.Dig(j, "TextoMateria", "Textos", "Texto")
		if list == nil {
			list = provider.Dig(j, "Textos", "Texto")
		}
		if list == nil {
			list = j["Textos"]
		}
		items := provider.AsList(list)
		if len(items) == 0 {
			continue
		}
		var out []map[string]any
		for _, item := range items {
			if m := provider.AsMap(item); m != nil {
				out = append(out, m)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

var preferredDescriptions = []string{"projeto", "parecer", "substitutivo", "emenda", "requerimento", "texto"}

func pickDocument(textos []map[string]any) string {
	type doc struct {
		desc, format, url string
	}
	docs := make([]doc, 0, len(textos))
	for _, t := range textos {
		docs = append(docs, doc{
			desc:   norm.Normalize(provider.FirstString(t, "DescricaoTipoTexto")),
			format: strings.ToLower(provider.FirstString(t, "FormatoTexto", "TipoDocumento")),
			url:    provider.FirstString(t, "UrlTexto", "Url", "Link"),
		})
	}
	isPDF := func(d doc) bool {
		return strings.Contains(d.format, "pdf") || strings.HasSuffix(strings.ToLower(d.url), ".pdf")
	}
	for _, d := range docs {
		if d.desc == "avulso inicial da materia" && isHTTP(d.url) {
			return d.url
		}
	}
	for _, d := range docs {
		if isHTTP(d.url) && isPDF(d) {
			for _, k := range preferredDescriptions {
				if strings.Contains(d.desc, k) {
					return d.url
				}
			}
		}
	}
	for _, d := range docs {
		if isHTTP(d.url) && isPDF(d) {
			return d.url
		}
	}
	for _, d := range docs {
		if isHTTP(d.url) {
			return d.url
		}
	}
	return ""
}

func isHTTP(u string) bool {
	return strings.HasPrefix(u, "http")
}

func (c *Client) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
