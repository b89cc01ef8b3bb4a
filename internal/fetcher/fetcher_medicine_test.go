package fetcher

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/storage"
)

const medicineSearchPage = `<html><body>
<a href="/otc/something">Other</a>
<a href="/drugs/dolo-650-tablet-74467">Dolo 650 Tablet</a>
<a href="/drugs/dolo-500-tablet-1">Dolo 500</a>
</body></html>`

const medicineProductPage = `<html><body>
<h1> Dolo 650 Tablet </h1>
<div class="DrugHeader__meta___B3BcU">
	<div class="DrugHeader__meta-title___22zXC">Prescription</div>
	<div class="DrugHeader__meta-value___vqYM0">Prescription Required</div>
</div>
<div class="DrugHeader__meta___B3BcU">
	<div class="DrugHeader__meta-title___22zXC">Marketer</div>
	<div class="DrugHeader__meta-value___vqYM0">Micro Labs Ltd</div>
</div>
<div class="DrugHeader__meta___B3BcU">
	<div class="DrugHeader__meta-title___22zXC">Empty</div>
</div>
<div class="DrugOverview__container___CqA8x">
	<h2 class="DrugOverview__title___1OwgG">Product introduction</h2>
	<div class="DrugOverview__content___22ZBX"> Dolo 650 Tablet helps relieve pain and fever. </div>
</div>
<div class="DrugOverview__container___CqA8x">
	<h2 class="DrugOverview__title___1OwgG">Uses of Dolo 650 Tablet</h2>
	<div class="DrugOverview__content___22ZBX">
		<ul class="DrugOverview__list___1HjxR"><li>Pain relief</li><li> Fever </li></ul>
	</div>
</div>
<div class="DrugOverview__container___CqA8x">
	<h2 class="DrugOverview__title___1OwgG">Benefits of Dolo 650 Tablet</h2>
	<div class="DrugOverview__content___22ZBX">
		<div class="ShowMoreArray__tile___2mFZk"><h3>In Pain relief</h3><div><div>Blocks pain messages.</div></div></div>
		<div class="ShowMoreArray__tile___2mFZk"><h3>In Fever</h3><div><div>Lowers temperature.</div></div></div>
	</div>
</div>
<div class="SubstituteItem__item___1wbMv">
	<div class="SubstituteItem__name___PH8Al">Calpol 650mg Tablet</div>
	<div class="SubstituteItem__manufacturer-name___2X-vB">by GSK</div>
	<div class="SubstituteItem__unit-price___MIbLo">₹1.5/tablet</div>
	<div class="SubstituteItem__save-text___1DPP8">8% cheaper</div>
</div>
<div class="SubstituteItem__item___1wbMv">
	<div class="SubstituteItem__name___PH8Al">Nameless</div>
</div>
<div class="SubstituteItem__item___1wbMv">
	<div class="SubstituteItem__name___PH8Al">Pacimol 650</div>
	<div class="SubstituteItem__manufacturer-name___2X-vB">by Ipca</div>
</div>
<div class="SubstituteItem__item___1wbMv">
	<div class="SubstituteItem__name___PH8Al">Third</div>
	<div class="SubstituteItem__manufacturer-name___2X-vB">by Someone</div>
</div>
</body></html>`

const medicineText = `Title: Dolo 650 Tablet

Prescription: Prescription Required
Marketer: Micro Labs Ltd

Product introduction:
Dolo 650 Tablet helps relieve pain and fever.

Uses of Dolo 650 Tablet:
- Pain relief
- Fever

Benefits of Dolo 650 Tablet:
**In Pain relief**
Blocks pain messages.

**In Fever**
Lowers temperature.

Substitute Medicines:
1. Calpol 650mg Tablet
   Manufacturer: by GSK
   Price: ₹1.5/tablet
   Savings: 8% cheaper

2. Pacimol 650
   Manufacturer: by Ipca
   Price: N/A
   Savings: N/A

`

func newMedicineServer(t *testing.T, searches *int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/search/all":
			*searches++
			if r.URL.Query().Get("name") == "unknown pill" {
				_, _ = w.Write([]byte("<html><body>No results</body></html>"))
				return
			}
			_, _ = w.Write([]byte(medicineSearchPage))
		case "/drugs/dolo-650-tablet-74467":
			_, _ = w.Write([]byte(medicineProductPage))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestMedicineFetcher_Lookup(t *testing.T) {
	searches := 0
	server := newMedicineServer(t, &searches)
	l := logger.NewTestLogger()
	f := NewMedicineFetcher(l, server.Client(), storage.NewMemoryStore(), MedicineConfig{
		BaseURL:        server.URL + "/",
		MaxSubstitutes: 2,
		CacheTTL:       time.Hour,
	})

	m, err := f.Lookup(t.Context(), "Dolo 650")
	require.NoError(t, err)
	assert.Equal(t, "Dolo 650 Tablet", m.Title)
	assert.Len(t, m.Substitutes, 2)
	assert.Equal(t, medicineText, m.Text())

	cached, err := f.Lookup(t.Context(), "dolo 650")
	require.NoError(t, err)
	assert.Equal(t, m, cached)
	assert.Equal(t, 1, searches, "second lookup served from cache")
	assert.True(t, l.HasEntry("debug", "Medicine loaded from cache"))
}

func TestMedicineFetcher_LookupNotFound(t *testing.T) {
	searches := 0
	server := newMedicineServer(t, &searches)
	f := NewMedicineFetcher(logger.NewTestLogger(), server.Client(), nil, MedicineConfig{BaseURL: server.URL})

	_, err := f.Lookup(t.Context(), "unknown pill")
	assert.ErrorIs(t, err, ErrMedicineNotFound)

	_, err = f.Lookup(t.Context(), "  ")
	assert.ErrorIs(t, err, ErrMedicineNotFound)
	assert.Equal(t, 1, searches)
}

func TestMedicineFetcher_Handle(t *testing.T) {
	searches := 0
	server := newMedicineServer(t, &searches)
	f := NewMedicineFetcher(logger.NewTestLogger(), server.Client(), nil, MedicineConfig{BaseURL: server.URL})

	require.True(t, f.CanHandle(server.URL+"/drugs/dolo-650-tablet-74467"))
	assert.False(t, f.CanHandle(server.URL+"/search/all"))

	response, err := f.Handle(t.Context(), MustNewRequestPayload(server.URL+"/drugs/dolo-650-tablet-74467", nil, nil))
	require.NoError(t, err)
	assert.Contains(t, response.GetText(), "3. Third\n   Manufacturer: by Someone")
}

func TestMedicine_TextWithoutDetails(t *testing.T) {
	assert.Equal(t, "Title: N/A\n\n\n", Medicine{Title: notAvailable}.Text())
}
