package transfers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"deedshare-backend/internal/application/ledger"
	trsvc "deedshare-backend/internal/application/transfers"
	"deedshare-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTransferHandlers(t *testing.T) *Handlers {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Property{}, &domain.OwnershipStake{},
		&domain.TransferProposal{}, &domain.LedgerEvent{},
	))
	require.NoError(t, ledger.MintTx(db, 1, domain.OwnerSplit{
		{Address: "0xalice", BasisPoints: 6000},
		{Address: "0xbob", BasisPoints: 4000},
	}))
	return &Handlers{Service: &trsvc.Service{DB: db}}
}

func appFor(h *Handlers, address string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": uuid.New().String(),
			"address": address,
			"role":    domain.RoleUser,
		})
		return c.Next()
	})
	app.Post("/propose", h.Propose)
	app.Post("/:property_id/approve", h.Approve)
	app.Post("/:property_id/approve-mediator", h.ApproveByMediator)
	app.Post("/:property_id/reject", h.Reject)
	app.Post("/:property_id/execute", h.Execute)
	app.Get("/:property_id", h.Get)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, payload map[string]interface{}) (int, map[string]interface{}) {
	var reqBody *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(b, &out)
	return resp.StatusCode, out
}

func proposalStatus(t *testing.T, out map[string]interface{}) string {
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	status, _ := data["status"].(string)
	return status
}

func TestPropose_MissingFields(t *testing.T) {
	h := setupTransferHandlers(t)
	app := appFor(h, "0xalice")

	code, _ := do(t, app, "POST", "/propose", map[string]interface{}{"property_id": 1})
	assert.Equal(t, 400, code)
}

func TestPropose_NonOwner(t *testing.T) {
	h := setupTransferHandlers(t)
	app := appFor(h, "0xstranger")

	code, _ := do(t, app, "POST", "/propose", map[string]interface{}{
		"property_id": 1,
		"mediator":    "0xmediator",
		"next_owners": []string{"0xcarol"},
	})
	assert.Equal(t, 403, code)
}

func TestConsensusFlowOverHTTP(t *testing.T) {
	h := setupTransferHandlers(t)
	alice := appFor(h, "0xalice")
	bob := appFor(h, "0xbob")
	mediator := appFor(h, "0xmediator")

	code, out := do(t, alice, "POST", "/propose", map[string]interface{}{
		"property_id": 1,
		"mediator":    "0xmediator",
		"next_owners": []string{"0xcarol"},
	})
	require.Equal(t, 201, code)
	assert.Equal(t, domain.ProposalPending, proposalStatus(t, out))

	// Mediator may not sign yet.
	code, _ = do(t, mediator, "POST", "/1/approve-mediator", nil)
	assert.Equal(t, 409, code)

	code, _ = do(t, alice, "POST", "/1/approve", nil)
	require.Equal(t, 200, code)

	// Double approval conflicts.
	code, _ = do(t, alice, "POST", "/1/approve", nil)
	assert.Equal(t, 409, code)

	code, out = do(t, bob, "POST", "/1/approve", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, domain.ProposalMediatorPending, proposalStatus(t, out))

	// Not executable before the mediator signs.
	code, _ = do(t, bob, "POST", "/1/execute", nil)
	assert.Equal(t, 409, code)

	code, out = do(t, mediator, "POST", "/1/approve-mediator", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, domain.ProposalReady, proposalStatus(t, out))

	code, out = do(t, bob, "POST", "/1/execute", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, domain.ProposalExecuted, proposalStatus(t, out))

	split, err := ledger.PartitionTx(h.Service.DB, 1)
	require.NoError(t, err)
	require.Len(t, split, 1)
	assert.Equal(t, "0xcarol", split[0].Address)
	assert.Equal(t, int64(10000), split[0].BasisPoints)
}

func TestReject_ThenGetShowsRejected(t *testing.T) {
	h := setupTransferHandlers(t)
	alice := appFor(h, "0xalice")
	bob := appFor(h, "0xbob")

	code, _ := do(t, alice, "POST", "/propose", map[string]interface{}{
		"property_id": 1,
		"mediator":    "0xmediator",
		"next_owners": []string{"0xcarol"},
	})
	require.Equal(t, 201, code)

	code, out := do(t, bob, "POST", "/1/reject", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, domain.ProposalRejected, proposalStatus(t, out))

	code, out = do(t, alice, "GET", "/1", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, domain.ProposalRejected, proposalStatus(t, out))
}

func TestGet_NoProposal(t *testing.T) {
	h := setupTransferHandlers(t)
	app := appFor(h, "0xalice")

	code, _ := do(t, app, "GET", "/1", nil)
	assert.Equal(t, 404, code)

	code, _ = do(t, app, "GET", "/notanumber", nil)
	assert.Equal(t, 400, code)
}
