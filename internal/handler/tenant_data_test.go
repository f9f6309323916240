package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addVoucher(t *testing.T, e *echo.Echo, tok, date string, amount, kwh float64) uint {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/api/vouchers", tok, map[string]interface{}{
		"token":         "1234-5678",
		"purchase_date": date,
		"amount":        amount,
		"kwh":           kwh,
		"vat":           amount * 0.15,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint(decode(t, rec)["id"].(float64))
}

func TestVoucherLifecycleAndMonthFilter(t *testing.T) {
	e, _, _ := newTestApp()
	alice := registerWithSecret(t, e, "alice@example.com")
	tok := token(alice)

	addVoucher(t, e, tok, "2026-07-05", 500, 280.4)
	julyID := addVoucher(t, e, tok, "2026-07-20", 300, 165.1)
	addVoucher(t, e, tok, "2026-08-02", 400, 221.9)

	rec := doJSON(t, e, http.MethodGet, "/api/vouchers", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 3)
	// Newest purchase first.
	assert.Equal(t, 400.0, all[0]["amount"])

	rec = doJSON(t, e, http.MethodGet, "/api/vouchers?month=2026-07", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var july []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &july))
	assert.Len(t, july, 2)

	rec = doJSON(t, e, http.MethodGet, "/api/vouchers?month=July", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/api/vouchers/%d", julyID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/vouchers?month=2026-07", tok, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &july))
	assert.Len(t, july, 1)
}

func TestVoucherValidation(t *testing.T) {
	e, _, _ := newTestApp()
	tok := token(registerWithSecret(t, e, "alice@example.com"))

	for name, body := range map[string]map[string]interface{}{
		"zero amount":  {"purchase_date": "2026-08-01", "amount": 0, "kwh": 10},
		"zero kwh":     {"purchase_date": "2026-08-01", "amount": 100, "kwh": 0},
		"no date":      {"amount": 100, "kwh": 10},
		"bad date":     {"purchase_date": "01/08/2026", "amount": 100, "kwh": 10},
		"negative vat": {"purchase_date": "2026-08-01", "amount": 100, "kwh": 10, "vat": -1},
	} {
		rec := doJSON(t, e, http.MethodPost, "/api/vouchers", tok, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestReadingLifecycle(t *testing.T) {
	e, _, _ := newTestApp()
	tok := token(registerWithSecret(t, e, "alice@example.com"))

	// Zero is a legal meter value; the meter may have been reset.
	rec := doJSON(t, e, http.MethodPost, "/api/readings", tok, map[string]interface{}{
		"value":        0,
		"reading_date": "2026-08-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodPost, "/api/readings", tok, map[string]interface{}{
		"value":        142.7,
		"reading_date": "2026-08-15",
		"notes":        "after geyser replacement",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := uint(decode(t, rec)["id"].(float64))

	// Negative values and missing fields are rejected.
	rec = doJSON(t, e, http.MethodPost, "/api/readings", tok, map[string]interface{}{
		"value":        -5,
		"reading_date": "2026-08-16",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(t, e, http.MethodPost, "/api/readings", tok, map[string]interface{}{
		"reading_date": "2026-08-16",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/readings", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var readings []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
	require.Len(t, readings, 2)
	assert.Equal(t, 142.7, readings[0]["value"])

	rec = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/api/readings/%d", id), tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCrossTenantIsolation(t *testing.T) {
	e, _, _ := newTestApp()
	alice := registerWithSecret(t, e, "alice@example.com")
	mallory := registerWithSecret(t, e, "mallory@example.com")

	voucherID := addVoucher(t, e, token(alice), "2026-08-01", 500, 280.4)
	rec := doJSON(t, e, http.MethodPost, "/api/readings", token(alice), map[string]interface{}{
		"value":        100,
		"reading_date": "2026-08-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	readingID := uint(decode(t, rec)["id"].(float64))

	// Mallory's lists are empty.
	for _, path := range []string{"/api/vouchers", "/api/readings", "/api/transactions"} {
		rec := doJSON(t, e, http.MethodGet, path, token(mallory), nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var items []json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		assert.Empty(t, items, path)
	}

	// Deleting another tenant's rows reads as not found, never as forbidden.
	rec = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/api/vouchers/%d", voucherID), token(mallory), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/api/readings/%d", readingID), token(mallory), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Alice still has her voucher.
	rec = doJSON(t, e, http.MethodGet, "/api/vouchers", token(alice), nil)
	var vouchers []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vouchers))
	assert.Len(t, vouchers, 1)
}

func TestInviteMemberSeesTenantData(t *testing.T) {
	e, _, _ := newTestApp()
	alice := registerWithSecret(t, e, "alice@example.com")
	addVoucher(t, e, token(alice), "2026-08-01", 500, 280.4)

	code := createInvite(t, e, token(alice), nil)
	bob := register(t, e, "bob@example.com", map[string]interface{}{"invite_code": code})

	rec := doJSON(t, e, http.MethodGet, "/api/vouchers", token(bob), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var vouchers []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vouchers))
	require.Len(t, vouchers, 1)

	// And vice versa: a voucher added by the member shows for the admin.
	bobVoucher := addVoucher(t, e, token(bob), "2026-08-10", 200, 110.0)
	rec = doJSON(t, e, http.MethodGet, "/api/vouchers", token(alice), nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vouchers))
	assert.Len(t, vouchers, 2)

	// Shared household: any member may delete any of the tenant's rows.
	rec = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/api/vouchers/%d", bobVoucher), token(alice), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExportMatchesListsAndSummary(t *testing.T) {
	e, _, _ := newTestApp()
	tok := token(registerWithSecret(t, e, "alice@example.com"))

	addVoucher(t, e, tok, "2026-07-05", 500, 280.4)
	addVoucher(t, e, tok, "2026-08-02", 300, 165.1)
	rec := doJSON(t, e, http.MethodPost, "/api/readings", tok, map[string]interface{}{
		"value":        1204.5,
		"reading_date": "2026-08-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/export", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	export := decode(t, rec)

	vouchers := export["vouchers"].([]interface{})
	readings := export["readings"].([]interface{})
	summary := export["summary"].(map[string]interface{})
	require.Len(t, vouchers, 2)
	require.Len(t, readings, 1)
	assert.Equal(t, float64(len(vouchers)), summary["voucher_count"])
	assert.Equal(t, float64(len(readings)), summary["reading_count"])

	var spend, kwh float64
	for _, v := range vouchers {
		spend += v.(map[string]interface{})["amount"].(float64)
		kwh += v.(map[string]interface{})["kwh"].(float64)
	}
	assert.InDelta(t, spend, summary["total_spend"].(float64), 1e-9)
	assert.InDelta(t, kwh, summary["total_kwh"].(float64), 1e-9)
	assert.Equal(t, "alice's household", export["tenant"].(map[string]interface{})["name"])
}

func TestTransactionsMergedNewestFirst(t *testing.T) {
	e, _, _ := newTestApp()
	tok := token(registerWithSecret(t, e, "alice@example.com"))

	addVoucher(t, e, tok, "2026-08-01", 500, 280.4)
	rec := doJSON(t, e, http.MethodPost, "/api/readings", tok, map[string]interface{}{
		"value":        1204.5,
		"reading_date": "2026-08-05",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	addVoucher(t, e, tok, "2026-08-10", 300, 165.1)

	rec = doJSON(t, e, http.MethodGet, "/api/transactions", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 3)
	assert.Equal(t, "voucher", txs[0]["type"])
	assert.Equal(t, 300.0, txs[0]["amount"])
	assert.Equal(t, "reading", txs[1]["type"])
	assert.Equal(t, "voucher", txs[2]["type"])
}

func TestDashboardTotalsAndLatestReading(t *testing.T) {
	e, _, _ := newTestApp()
	tok := token(registerWithSecret(t, e, "alice@example.com"))

	addVoucher(t, e, tok, "2020-01-15", 500, 280.4)
	rec := doJSON(t, e, http.MethodPost, "/api/readings", tok, map[string]interface{}{
		"value":        1100.0,
		"reading_date": "2020-01-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, e, http.MethodPost, "/api/readings", tok, map[string]interface{}{
		"value":        1250.5,
		"reading_date": "2020-02-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)

	totals := resp["totals"].(map[string]interface{})
	assert.Equal(t, 1.0, totals["voucher_count"])
	assert.Equal(t, 2.0, totals["reading_count"])
	assert.Equal(t, 500.0, totals["total_spend"])

	// All data is years old, so the current month contributes nothing.
	assert.Equal(t, 0.0, resp["month_spend"])
	assert.Equal(t, 0.0, resp["month_kwh"])

	latest := resp["latest_reading"].(map[string]interface{})
	assert.Equal(t, 1250.5, latest["value"])
}

func TestDashboardMonthWindowIsUTC(t *testing.T) {
	e, _, _ := newTestApp()
	tok := token(registerWithSecret(t, e, "alice@example.com"))

	// Purchase dates parse as UTC midnight; a voucher on the first day of
	// the current month must count regardless of the server's timezone.
	firstOfMonth := time.Now().UTC().Format("2006-01") + "-01"
	addVoucher(t, e, tok, firstOfMonth, 250, 130.0)
	addVoucher(t, e, tok, "2020-01-15", 500, 280.4)

	rec := doJSON(t, e, http.MethodGet, "/api/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, 250.0, resp["month_spend"])
	assert.Equal(t, 130.0, resp["month_kwh"])
}

func TestTenantEndpointListsMembers(t *testing.T) {
	e, _, _ := newTestApp()
	alice := registerWithSecret(t, e, "alice@example.com")
	code := createInvite(t, e, token(alice), nil)
	register(t, e, "bob@example.com", map[string]interface{}{"invite_code": code})

	rec := doJSON(t, e, http.MethodGet, "/api/tenant", token(alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	members := resp["members"].([]interface{})
	require.Len(t, members, 2)
	// Oldest membership first: the admin who created the tenant.
	first := members[0].(map[string]interface{})
	assert.Equal(t, "alice@example.com", first["email"])
	assert.Equal(t, "admin", first["role"])
}

func TestSuperAdminOverview(t *testing.T) {
	e, st, jwt := newTestApp()
	alice := registerWithSecret(t, e, "alice@example.com")
	registerWithSecret(t, e, "bob@example.com")
	addVoucher(t, e, token(alice), "2026-08-01", 500, 280.4)

	_, rootToken := seedUser(t, st, jwt, "root@example.com", true)

	rec := doJSON(t, e, http.MethodGet, "/api/admin/tenants", rootToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tenants := decode(t, rec)["tenants"].([]interface{})
	require.Len(t, tenants, 2)
	first := tenants[0].(map[string]interface{})
	assert.Equal(t, 1.0, first["member_count"])
	assert.Equal(t, 1.0, first["voucher_count"])
	assert.Equal(t, 500.0, first["total_spend"])

	// Regular members cannot reach the admin surface.
	rec = doJSON(t, e, http.MethodGet, "/api/admin/tenants", token(alice), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The sentinel grants nothing outside the admin surface.
	rec = doJSON(t, e, http.MethodGet, "/api/vouchers", rootToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, e, http.MethodGet, "/api/export", rootToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
