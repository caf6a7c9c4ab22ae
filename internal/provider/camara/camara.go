// Package camara fetches newly filed propositions from the Câmara dos
// Deputados open-data API.
package camara

import (
	"context"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/civimetrics/plenario/internal/provider"
	"github.com/civimetrics/plenario/pkg/plenario/ingest"
)

const DefaultBaseURL = "https://dadosabertos.camara.leg.br/api/v2"

// Client talks to the Câmara API. Per-legislator profile lookups are cached
// because the same deputies co-sign many bills in one cycle.
type Client struct {
	BaseURL string
	HTTP    *provider.HTTPClient
	Logger  *log.Logger

	// Today stamps the search window; defaults to time.Now.
	Today func() time.Time

	profiles *gocache.Cache
}

// New creates a Câmara client.
func New(baseURL string, httpc *provider.HTTPClient, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:  baseURL,
		HTTP:     httpc,
		Logger:   logger,
		profiles: gocache.New(12*time.Hour, time.Hour),
	}
}

// FetchNew lists the propositions presented today, following pagination,
// and resolves authorship and the full-text document URL for each.
func (c *Client) FetchNew(ctx context.Context) ([]ingest.CamaraBill, error) {
	day := time.Now()
	if c.Today != nil {
		day = c.Today()
	}
	date := day.Format("2006-01-02")

	var bills []ingest.CamaraBill
	page := 1
	for {
		params := url.Values{
			"dataApresentacaoInicio": {date},
			"dataApresentacaoFim":    {date},
			"ordem":                  {"DESC"},
			"ordenarPor":             {"id"},
			"itens":                  {"100"},
			"pagina":                 {strconv.Itoa(page)},
		}
		j, err := c.HTTP.GetJSON(ctx, c.BaseURL+"/proposicoes", params)
		if err != nil {
			return nil, err
		}
		for _, item := range provider.AsList(j["dados"]) {
			d := provider.AsMap(item)
			if d == nil {
				continue
			}
			bills = append(bills, c.buildBill(ctx, d))
		}
		if !hasNextLink(j["links"]) {
			break
		}
		page++
	}
	return bills, nil
}

func (c *Client) buildBill(ctx context.Context, d map[string]any) ingest.CamaraBill {
	id := provider.Str(d["id"])
	presented := provider.FirstString(d, "dataApresentacao")
	if presented == "" {
		presented = c.presentedFromDetail(ctx, id)
	}
	return ingest.CamaraBill{
		ID:          id,
		Type:        provider.FirstString(d, "siglaTipo"),
		Number:      provider.FirstString(d, "numero"),
		Year:        provider.FirstString(d, "ano"),
		Presented:   presented,
		Summary:     provider.FirstString(d, "ementa"),
		DocumentURL: c.documentURL(ctx, id),
		Authors:     c.authors(ctx, id),
	}
}

// presentedFromDetail is the fallback chain for a missing presentation
// date: the detail record's own field, then its status timestamp.
func (c *Client) presentedFromDetail(ctx context.Context, id string) string {
	j, err := c.HTTP.GetJSON(ctx, c.BaseURL+"/proposicoes/"+id, nil)
	if err != nil {
		c.logf("detail %s: %v", id, err)
		return ""
	}
	d := provider.AsMap(j["dados"])
	if d == nil {
		return ""
	}
	if v := provider.FirstString(d, "dataApresentacao"); v != "" {
		return v
	}
	return provider.Str(provider.Dig(d, "statusProposicao", "dataHora"))
}

// authors lists the proposition's authors with party/region resolved through
// the cached legislator profile lookup.
func (c *Client) authors(ctx context.Context, id string) []ingest.Author {
	j, err := c.HTTP.GetJSON(ctx, c.BaseURL+"/proposicoes/"+id+"/autores", nil)
	if err != nil {
		c.logf("authors %s: %v", id, err)
		return nil
	}
	var out []ingest.Author
	for _, item := range provider.AsList(j["dados"]) {
		a := provider.AsMap(item)
		if a == nil {
			continue
		}
		author := ingest.Author{
			Name:         provider.FirstString(a, "nome"),
			Role:         strings.TrimSpace(provider.FirstString(a, "tipo", "tipoAutor", "tipoAssinatura")),
			SigningOrder: provider.Int(provider.First(a, "ordemAssinatura", "ordem")),
		}
		if depID := legislatorID(provider.FirstString(a, "uri")); depID != "" {
			author.IsLegislator = true
			author.Party, author.UF = c.profile(ctx, depID)
		}
		if author.Name != "" {
			out = append(out, author)
		}
	}
	return out
}

// profile fetches a deputy's current party and state, memoized.
func (c *Client) profile(ctx context.Context, depID string) (party, uf string) {
	if v, ok := c.profiles.Get(depID); ok {
		p := v.([2]string)
		return p[0], p[1]
	}
	j, err := c.HTTP.GetJSON(ctx, c.BaseURL+"/deputados/"+depID, nil)
	if err != nil {
		c.logf("deputado %s: %v", depID, err)
		return "", ""
	}
	d := provider.AsMap(j["dados"])
	if d == nil {
		return "", ""
	}
	status := provider.AsMap(d["ultimoStatus"])
	if status != nil {
		party = provider.FirstString(status, "siglaPartido")
		uf = provider.FirstString(status, "siglaUf")
	}
	if party == "" {
		party = provider.FirstString(d, "siglaPartido")
	}
	if uf == "" {
		uf = provider.FirstString(d, "uf")
	}
	c.profiles.Set(depID, [2]string{party, uf}, gocache.DefaultExpiration)
	return party, uf
}

// documentURL resolves the full-text document for a proposition, in
// priority order: the detail record's direct URL, the inteiroTeor endpoint,
// then the documents listing filtered by description.
func (c *Client) documentURL(ctx context.Context, id string) string {
	if j, err := c.HTTP.GetJSON(ctx, c.BaseURL+"/proposicoes/"+id, nil); err == nil {
		if u := provider.Str(provider.Dig(j, "dados", "urlInteiroTeor")); isHTTP(u) {
			return u
		}
	}
	if j, err := c.HTTP.GetJSON(ctx, c.BaseURL+"/proposicoes/"+id+"/inteiroTeor", nil); err == nil {
		for _, item := range provider.AsList(j["dados"]) {
			d := provider.AsMap(item)
			if d == nil {
				continue
			}
			if u := provider.FirstString(d, "url", "uri", "link"); isHTTP(u) {
				return u
			}
		}
	}
	if j, err := c.HTTP.GetJSON(ctx, c.BaseURL+"/proposicoes/"+id+"/documentos", nil); err == nil {
		docs := provider.AsList(j["dados"])
		for _, item := range docs {
			d := provider.AsMap(item)
			if d == nil {
				continue
			}
			desc := strings.ToLower(provider.FirstString(d, "tipoDescricao", "titulo"))
			u := provider.FirstString(d, "url", "uri", "link")
			if isHTTP(u) && (strings.Contains(desc, "inteiro") || strings.Contains(desc, "teor") ||
				strings.HasSuffix(strings.ToLower(u), ".pdf")) {
				return u
			}
		}
		for _, item := range docs {
			d := provider.AsMap(item)
			if d == nil {
				continue
			}
			if u := provider.FirstString(d, "url", "uri", "link"); isHTTP(u) {
				return u
			}
		}
	}
	return ""
}

// legislatorID extracts the numeric id from a /deputados/{id} profile URI.
func legislatorID(uri string) string {
	if uri == "" || !strings.Contains(uri, "/deputados/") {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	last := path[strings.LastIndex(path, "/")+1:]
	if _, err := strconv.Atoi(last); err != nil {
		return ""
	}
	return last
}

func hasNextLink(v any) bool {
	for _, item := range provider.AsList(v) {
		lk := provider.AsMap(item)
		if lk != nil && provider.Str(lk["rel"]) == "next" {
			return true
		}
	}
	return false
}

func isHTTP(u string) bool {
	return strings.HasPrefix(u, "http")
}

func (c *Client) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
