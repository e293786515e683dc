package integration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/models"
	"github.com/safar/go-shop-api/internal/store"
	"github.com/shopspring/decimal"
)

const cancelReason = "changed my mind about this"

func TestCreateOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders1@example.com", "Order Tester")
	physical := createTestProduct(t, db, "ORD-001", models.KindPhysical, 100, 50)
	digital := createTestProduct(t, db, "ORD-002", models.KindDigital, 200, 0)

	order, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:  &user.ID,
		Address: "1 Main Street",
		Items: []store.OrderItemRequest{
			{ProductID: physical.ID, Quantity: 5},
			{ProductID: digital.ID, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if order.Status != models.StatusPlaced {
		t.Errorf("Expected status PLACED, got %s", order.Status)
	}
	if !strings.HasPrefix(order.Code, "ORD-") {
		t.Errorf("Unexpected order code %q", order.Code)
	}

	expectedTotal := decimal.NewFromInt(100).Mul(decimal.NewFromInt(5)).
		Add(decimal.NewFromInt(200).Mul(decimal.NewFromInt(3)))
	if !order.TotalAmount.Equal(expectedTotal) {
		t.Errorf("Expected total %s, got %s", expectedTotal, order.TotalAmount)
	}
	if order.ItemCount != 8 {
		t.Errorf("Expected item count 8, got %d", order.ItemCount)
	}

	// Physical stock is taken, digital stock is untracked.
	physicalAfter, err := store.GetProduct(ctx, db, physical.ID)
	if err != nil {
		t.Fatalf("Get physical product: %v", err)
	}
	if physicalAfter.StockQuantity != 45 {
		t.Errorf("Expected physical stock 45, got %d", physicalAfter.StockQuantity)
	}
	digitalAfter, err := store.GetProduct(ctx, db, digital.ID)
	if err != nil {
		t.Fatalf("Get digital product: %v", err)
	}
	if digitalAfter.StockQuantity != 0 {
		t.Errorf("Digital stock should stay 0, got %d", digitalAfter.StockQuantity)
	}

	// Only physical items carry the restock flag.
	for _, item := range order.Items {
		wantRestock := item.ProductID == physical.ID
		if item.Restock != wantRestock {
			t.Errorf("Item %d restock = %v, want %v", item.ProductID, item.Restock, wantRestock)
		}
	}
}

func TestCreateGuestOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	product := createTestProduct(t, db, "ORD-G01", models.KindPhysical, 100, 10)

	order, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		Guest: &models.GuestContact{
			Name:  "Walk In",
			Email: "walkin@example.com",
			Phone: "+15550001111",
		},
		Address: "2 Side Street",
		Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Create guest order: %v", err)
	}

	if order.UserID != nil {
		t.Errorf("Guest order should carry no user id, got %v", *order.UserID)
	}
	if order.Guest == nil || order.Guest.Email != "walkin@example.com" {
		t.Errorf("Guest contact not persisted: %+v", order.Guest)
	}
}

func TestOrderSnapshotImmutable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders2@example.com", "Snapshot Tester")
	product := createTestProduct(t, db, "ORD-003", models.KindPhysical, 100, 10)

	order, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:  &user.ID,
		Address: "3 Main Street",
		Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	// A later price edit must not leak into the placed order.
	_, err = store.UpdateProduct(ctx, db, product.ID, store.UpdateProductRequest{
		Name:    "Repriced",
		Price:   decimal.NewFromInt(999),
		Channel: product.Channel,
		Kind:    product.Kind,
	})
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}

	reread, err := store.GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}

	if !reread.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Snapshot price changed to %s", reread.Items[0].UnitPrice)
	}
	if reread.Items[0].Name != "Product ORD-003" {
		t.Errorf("Snapshot name changed to %q", reread.Items[0].Name)
	}
	if !reread.TotalAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Order total changed to %s", reread.TotalAmount)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders3@example.com", "Stock Tester")
	product := createTestProduct(t, db, "ORD-004", models.KindPhysical, 100, 5)

	_, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:  &user.ID,
		Address: "4 Main Street",
		Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 10}},
	})
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock error, got: %v", err)
	}

	after, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.StockQuantity != 5 {
		t.Errorf("Stock should remain unchanged at 5, got %d", after.StockQuantity)
	}
}

func TestConcurrentOrderCreation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders4@example.com", "Race Tester")
	product := createTestProduct(t, db, "ORD-005", models.KindPhysical, 100, 20)

	concurrency := 10
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
				UserID:  &user.ID,
				Address: "5 Main Street",
				Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 2}},
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrInsufficientStock):
		default:
			t.Logf("Unexpected error: %v", err)
		}
	}

	if successCount != 10 {
		t.Errorf("Expected 10 successful orders, got %d", successCount)
	}

	after, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	expectedStock := 20 - successCount*2
	if after.StockQuantity != expectedStock {
		t.Errorf("Expected final stock %d, got %d", expectedStock, after.StockQuantity)
	}
}

func TestCancelOrderRestocks(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders5@example.com", "Cancel Tester")
	physical := createTestProduct(t, db, "ORD-006", models.KindPhysical, 100, 10)
	digital := createTestProduct(t, db, "ORD-007", models.KindDigital, 50, 0)

	order, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:  &user.ID,
		Address: "6 Main Street",
		Items: []store.OrderItemRequest{
			{ProductID: physical.ID, Quantity: 4},
			{ProductID: digital.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	canceled, err := store.CancelOrder(ctx, db, order.ID, models.CancelActorUser, cancelReason)
	if err != nil {
		t.Fatalf("Cancel order: %v", err)
	}

	if canceled.Status != models.StatusCanceled {
		t.Errorf("Expected CANCELED, got %s", canceled.Status)
	}
	if canceled.CancelReason != cancelReason || canceled.CanceledBy != models.CancelActorUser {
		t.Errorf("Cancellation metadata missing: %+v", canceled)
	}
	if canceled.CanceledAt == nil {
		t.Error("canceled_at should be set")
	}

	// Physical quantity comes back; the digital line never held stock.
	after, err := store.GetProduct(ctx, db, physical.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.StockQuantity != 10 {
		t.Errorf("Expected stock restored to 10, got %d", after.StockQuantity)
	}

	// A second cancel must not credit stock again.
	_, err = store.CancelOrder(ctx, db, order.ID, models.CancelActorUser, cancelReason)
	if !errors.Is(err, database.ErrAlreadyCanceled) {
		t.Errorf("Expected already canceled error, got: %v", err)
	}
	after, err = store.GetProduct(ctx, db, physical.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.StockQuantity != 10 {
		t.Errorf("Stock credited twice: %d", after.StockQuantity)
	}
}

func TestCancelOrderShortReason(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders6@example.com", "Reason Tester")
	product := createTestProduct(t, db, "ORD-008", models.KindPhysical, 100, 5)

	order, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:  &user.ID,
		Address: "7 Main Street",
		Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	_, err = store.CancelOrder(ctx, db, order.ID, models.CancelActorUser, "too short")
	if !errors.Is(err, database.ErrReasonTooShort) {
		t.Errorf("Expected reason too short error, got: %v", err)
	}
}

func TestConcurrentCancel(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders7@example.com", "Cancel Race Tester")
	product := createTestProduct(t, db, "ORD-009", models.KindPhysical, 100, 10)

	order, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:  &user.ID,
		Address: "8 Main Street",
		Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	concurrency := 5
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CancelOrder(ctx, db, order.ID, models.CancelActorUser, cancelReason)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrAlreadyCanceled):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if successCount != 1 {
		t.Errorf("Expected exactly one successful cancel, got %d", successCount)
	}

	after, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.StockQuantity != 10 {
		t.Errorf("Expected stock restored exactly once to 10, got %d", after.StockQuantity)
	}
}

func TestAdvanceOrderStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders8@example.com", "Advance Tester")
	product := createTestProduct(t, db, "ORD-010", models.KindPhysical, 100, 5)

	order, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:  &user.ID,
		Address: "9 Main Street",
		Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	advanced, err := store.AdvanceOrderStatus(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("First advance: %v", err)
	}
	if advanced.Status != models.StatusInDelivery {
		t.Errorf("Expected IN_DELIVERY, got %s", advanced.Status)
	}

	// Cancellation is only legal from PLACED.
	_, err = store.CancelOrder(ctx, db, order.ID, models.CancelActorAdmin, cancelReason)
	if !errors.Is(err, database.ErrInvalidTransition) {
		t.Errorf("Expected invalid transition on cancel after advance, got: %v", err)
	}

	advanced, err = store.AdvanceOrderStatus(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Second advance: %v", err)
	}
	if advanced.Status != models.StatusDelivered {
		t.Errorf("Expected DELIVERED, got %s", advanced.Status)
	}

	_, err = store.AdvanceOrderStatus(ctx, db, order.ID)
	if !errors.Is(err, database.ErrInvalidTransition) {
		t.Errorf("Expected invalid transition past DELIVERED, got: %v", err)
	}
}

func TestAdvanceCanceledOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders10@example.com", "Blocked Tester")
	product := createTestProduct(t, db, "ORD-012", models.KindPhysical, 100, 5)

	order, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:  &user.ID,
		Address: "11 Main Street",
		Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if _, err := store.CancelOrder(ctx, db, order.ID, models.CancelActorUser, cancelReason); err != nil {
		t.Fatalf("Cancel order: %v", err)
	}

	// A canceled order reports its cancellation, not a generic refusal.
	_, err = store.AdvanceOrderStatus(ctx, db, order.ID)
	if !errors.Is(err, database.ErrAlreadyCanceled) {
		t.Errorf("Expected already canceled error, got: %v", err)
	}

	_, err = store.AdvanceOrderStatus(ctx, db, 999999)
	if !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected order not found, got: %v", err)
	}
}

func TestListUserOrdersCursor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "orders9@example.com", "Cursor Tester")
	product := createTestProduct(t, db, "ORD-011", models.KindPhysical, 100, 100)

	for i := 0; i < 15; i++ {
		_, _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
			UserID:  &user.ID,
			Address: "10 Main Street",
			Items:   []store.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("Create order %d: %v", i, err)
		}
	}

	page1, err := store.ListUserOrdersCursor(ctx, db, user.ID, "", 10)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}
	if !page1.HasMore || page1.NextCursor == "" {
		t.Error("Page 1 should have more results and a cursor")
	}

	page2, err := store.ListUserOrdersCursor(ctx, db, user.ID, page1.NextCursor, 10)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}
	if page2.HasMore {
		t.Error("Page 2 should not have more results")
	}
	if len(page2.Items.([]models.Order)) != 5 {
		t.Errorf("Expected 5 orders on page 2, got %d", len(page2.Items.([]models.Order)))
	}
}
