package service_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laborReq(rate float64, workers int) models.CreateLaborRequest {
	return models.CreateLaborRequest{
		LaborType:       "Mason",
		NumberOfWorkers: workers,
		Date:            "2024-03-01",
		Rate:            &rate,
		Description:     "Brick work",
	}
}

func purchaseReq(material string, unitPrice, quantity float64, totalCost *float64) models.PurchaseRequest {
	return models.PurchaseRequest{
		MaterialName:  material,
		Date:          "2024-03-02",
		Quantity:      &quantity,
		Supplier:      "Acme Supplies",
		UnitPrice:     &unitPrice,
		TotalCost:     totalCost,
		DeliveryNote:  "DN-1",
		InvoiceNumber: "INV-1",
	}
}

// assertLedgerInvariants checks the stored totals against the ledger entries
func assertLedgerInvariants(t *testing.T, f *fixture, projectID string) {
	t.Helper()
	ctx := context.Background()
	project := f.project(t, projectID)

	records, err := f.repo.ListLaborByProject(ctx, projectID)
	require.NoError(t, err)
	var labor float64
	for _, r := range records {
		assert.Equal(t, r.Rate*float64(r.NumberOfWorkers), r.TotalWage)
		labor += r.TotalWage
	}

	materials, err := f.repo.ListMaterialsByProject(ctx, projectID)
	require.NoError(t, err)
	var material float64
	for i := range materials {
		material += materials[i].PurchaseTotal()
	}

	assert.Equal(t, labor, project.TotalLaborCost)
	assert.Equal(t, material, project.TotalMaterialCost)
	assert.Equal(t, project.TotalLaborCost+project.TotalMaterialCost, project.GrandProjectCost)
}

func TestLedgerScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	project := f.createProject(t, "client@example.com")

	assert.Zero(t, project.TotalLaborCost)
	assert.Zero(t, project.GrandProjectCost)

	added, err := f.svc.AddLabor(ctx, project.ID, laborReq(800, 2))
	require.NoError(t, err)
	assert.Equal(t, 1600.0, added.Labor.TotalWage)
	assert.Equal(t, 1600.0, added.Totals.TotalLaborCost)
	assert.Equal(t, 1600.0, added.Totals.GrandProjectCost)

	bought, err := f.svc.UpsertPurchase(ctx, project.ID, purchaseReq("Cement", 250, 10, ptr(2500.0)))
	require.NoError(t, err)
	assert.Equal(t, 2500.0, bought.Totals.TotalMaterialCost)
	assert.Equal(t, 4100.0, bought.Totals.GrandProjectCost)

	deleted, err := f.svc.DeleteLabor(ctx, project.ID, added.Labor.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, deleted.Totals.TotalLaborCost)
	assert.Equal(t, 2500.0, deleted.Totals.GrandProjectCost)

	stored := f.project(t, project.ID)
	assert.Empty(t, stored.LaborIDs)
	assert.Equal(t, []string{bought.Material.ID}, stored.MaterialIDs)
	assertLedgerInvariants(t, f, project.ID)
}

func TestLaborOfAnotherProjectIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	a := f.createProject(t, "client@example.com")
	b := f.createProject(t, "client@example.com")

	added, err := f.svc.AddLabor(ctx, a.ID, laborReq(100, 3))
	require.NoError(t, err)

	_, err = f.svc.DeleteLabor(ctx, b.ID, added.Labor.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.UpdateLabor(ctx, b.ID, added.Labor.ID, models.UpdateLaborRequest{NumberOfWorkers: ptr(5)})
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.Equal(t, 300.0, f.project(t, a.ID).TotalLaborCost)
	assert.Equal(t, 0.0, f.project(t, b.ID).TotalLaborCost)
}

func TestUpdateLaborRecomputesWage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	project := f.createProject(t, "client@example.com")

	added, err := f.svc.AddLabor(ctx, project.ID, laborReq(100, 2))
	require.NoError(t, err)

	updated, err := f.svc.UpdateLabor(ctx, project.ID, added.Labor.ID, models.UpdateLaborRequest{Rate: ptr(150.0)})
	require.NoError(t, err)
	assert.Equal(t, 300.0, updated.Labor.TotalWage)
	assert.Equal(t, 300.0, updated.Totals.TotalLaborCost)

	_, err = f.svc.UpdateLabor(ctx, project.ID, added.Labor.ID, models.UpdateLaborRequest{NumberOfWorkers: ptr(0)})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestAddLaborValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	project := f.createProject(t, "client@example.com")

	_, err := f.svc.AddLabor(ctx, project.ID, laborReq(-1, 2))
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.AddLabor(ctx, project.ID, laborReq(10, 0))
	assert.ErrorIs(t, err, service.ErrValidation)

	bad := laborReq(10, 1)
	bad.Date = "next tuesday"
	_, err = f.svc.AddLabor(ctx, project.ID, bad)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.AddLabor(ctx, "missing", laborReq(10, 1))
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPurchaseDefaultsAndReplacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	project := f.createProject(t, "client@example.com")

	first, err := f.svc.UpsertPurchase(ctx, project.ID, purchaseReq("Steel", 12.5, 4, nil))
	require.NoError(t, err)
	require.Len(t, first.Material.PurchaseInfo, 1)
	assert.Equal(t, 50.0, first.Material.PurchaseInfo[0].TotalCost)

	purchaseID := first.Material.PurchaseInfo[0].ID
	replace := purchaseReq("ignored for existing ids", 10, 4, nil)
	replace.PurchaseID = purchaseID
	second, err := f.svc.UpsertPurchase(ctx, project.ID, replace)
	require.NoError(t, err)
	assert.Equal(t, first.Material.ID, second.Material.ID)
	require.Len(t, second.Material.PurchaseInfo, 1)
	assert.Equal(t, purchaseID, second.Material.PurchaseInfo[0].ID)
	assert.Equal(t, 40.0, second.Totals.TotalMaterialCost)

	unknown := purchaseReq("Steel", 1, 1, nil)
	unknown.PurchaseID = "does-not-exist"
	_, err = f.svc.UpsertPurchase(ctx, project.ID, unknown)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.DeletePurchase(ctx, project.ID, purchaseID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.project(t, project.ID).TotalMaterialCost)

	_, err = f.svc.DeletePurchase(ctx, project.ID, purchaseID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestFractionalAmountsAreStoredAsGiven(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	project := f.createProject(t, "client@example.com")

	added, err := f.svc.AddLabor(ctx, project.ID, laborReq(0.004, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.004, added.Labor.TotalWage)
	assert.Equal(t, 0.004, added.Totals.TotalLaborCost)

	// a supplied totalCost is kept even when it differs from unitPrice x quantity
	bought, err := f.svc.UpsertPurchase(ctx, project.ID, purchaseReq("Glass", 3.335, 3, ptr(10.005)))
	require.NoError(t, err)
	assert.Equal(t, 10.005, bought.Material.PurchaseInfo[0].TotalCost)
	assert.Equal(t, 10.005, bought.Totals.TotalMaterialCost)
	assert.Equal(t, 0.004+10.005, bought.Totals.GrandProjectCost)

	derived, err := f.svc.UpsertPurchase(ctx, project.ID, purchaseReq("Tiles", 0.1, 3, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.1*3, derived.Material.PurchaseInfo[0].TotalCost)

	assertLedgerInvariants(t, f, project.ID)
}

func TestUsageHasNoCostEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	project := f.createProject(t, "client@example.com")

	usage := models.UsageRequest{
		MaterialName: "Cement",
		Division:     "Foundation",
		Quantity:     ptr(20.0),
		Unit:         "bags",
		Description:  "Footings",
		Date:         "2024-02-01",
	}
	created, err := f.svc.UpsertUsage(ctx, project.ID, usage)
	require.NoError(t, err)
	require.Len(t, created.Material.UsageInfo, 1)

	// a purchase of the same material lands in the same document
	bought, err := f.svc.UpsertPurchase(ctx, project.ID, purchaseReq("Cement", 10, 20, nil))
	require.NoError(t, err)
	assert.Equal(t, created.Material.ID, bought.Material.ID)

	usage.UsageID = created.Material.UsageInfo[0].ID
	usage.Quantity = ptr(25.0)
	replaced, err := f.svc.UpsertUsage(ctx, project.ID, usage)
	require.NoError(t, err)
	require.Len(t, replaced.Material.UsageInfo, 1)
	assert.Equal(t, 25.0, replaced.Material.UsageInfo[0].Quantity)
	assert.Equal(t, 200.0, replaced.Totals.TotalMaterialCost)

	usage.UsageID = "unknown"
	_, err = f.svc.UpsertUsage(ctx, project.ID, usage)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.DeleteUsage(ctx, project.ID, replaced.Material.UsageInfo[0].ID)
	require.NoError(t, err)

	stored := f.project(t, project.ID)
	assert.Equal(t, []string{created.Material.ID}, stored.MaterialIDs)
	assert.Equal(t, 200.0, stored.TotalMaterialCost)
	assertLedgerInvariants(t, f, project.ID)
}

func TestLedgerInvariantsUnderRandomOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	project := f.createProject(t, "client@example.com")

	rng := rand.New(rand.NewSource(42))
	var laborIDs, purchaseIDs []string
	materials := []string{"Cement", "Steel", "Timber"}

	for step := 0; step < 200; step++ {
		switch op := rng.Intn(6); {
		case op == 0 || len(laborIDs) == 0:
			resp, err := f.svc.AddLabor(ctx, project.ID, laborReq(float64(rng.Intn(500)), 1+rng.Intn(5)))
			require.NoError(t, err)
			laborIDs = append(laborIDs, resp.Labor.ID)
		case op == 1:
			id := laborIDs[rng.Intn(len(laborIDs))]
			_, err := f.svc.UpdateLabor(ctx, project.ID, id, models.UpdateLaborRequest{
				Rate:            ptr(float64(rng.Intn(500))),
				NumberOfWorkers: ptr(1 + rng.Intn(5)),
			})
			require.NoError(t, err)
		case op == 2:
			i := rng.Intn(len(laborIDs))
			_, err := f.svc.DeleteLabor(ctx, project.ID, laborIDs[i])
			require.NoError(t, err)
			laborIDs = append(laborIDs[:i], laborIDs[i+1:]...)
		case op == 3 || len(purchaseIDs) == 0:
			name := materials[rng.Intn(len(materials))]
			resp, err := f.svc.UpsertPurchase(ctx, project.ID, purchaseReq(name, float64(rng.Intn(100)), float64(rng.Intn(50)), nil))
			require.NoError(t, err)
			purchaseIDs = append(purchaseIDs, resp.Material.PurchaseInfo[len(resp.Material.PurchaseInfo)-1].ID)
		case op == 4:
			req := purchaseReq("", float64(rng.Intn(100)), float64(rng.Intn(50)), ptr(float64(rng.Intn(3000))))
			req.PurchaseID = purchaseIDs[rng.Intn(len(purchaseIDs))]
			_, err := f.svc.UpsertPurchase(ctx, project.ID, req)
			require.NoError(t, err)
		default:
			i := rng.Intn(len(purchaseIDs))
			_, err := f.svc.DeletePurchase(ctx, project.ID, purchaseIDs[i])
			require.NoError(t, err)
			purchaseIDs = append(purchaseIDs[:i], purchaseIDs[i+1:]...)
		}
		assertLedgerInvariants(t, f, project.ID)
	}
}

func TestConcurrentLedgerWritersKeepTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")
	project := f.createProject(t, "client@example.com")

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.AddLabor(ctx, project.ID, laborReq(100, 1))
			assert.NoError(t, err)
			_, err = f.svc.UpsertPurchase(ctx, project.ID, purchaseReq(fmt.Sprintf("Material %d", i%3), 10, 1, nil))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored := f.project(t, project.ID)
	assert.Equal(t, 2000.0, stored.TotalLaborCost)
	assert.Equal(t, 200.0, stored.TotalMaterialCost)
	assert.Equal(t, 2200.0, stored.GrandProjectCost)
	assert.Len(t, stored.LaborIDs, writers)
	assert.Len(t, stored.MaterialIDs, 3)
	assertLedgerInvariants(t, f, project.ID)
}

func TestLedgerReadsRequireOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signUpClient(t, "owner@example.com")
	other := f.signUpClient(t, "other@example.com")
	project := f.createProject(t, "owner@example.com")

	_, err := f.svc.ListLabor(ctx, owner, project.ID)
	assert.NoError(t, err)
	_, err = f.svc.ListMaterials(ctx, f.admin, project.ID)
	assert.NoError(t, err)

	_, err = f.svc.ListLabor(ctx, other, project.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.svc.ListMaterials(ctx, other, project.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
}
