// Command seed loads a demo freight workflow into the configured store backend.
// Set SEED_API_TOKEN to also print a bcrypt hash usable as API_TOKEN_HASH.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/freightdesk/internal/app"
	"github.com/odyssey-erp/freightdesk/internal/documents"
	"github.com/odyssey-erp/freightdesk/internal/finance"
	"github.com/odyssey-erp/freightdesk/internal/freight"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	if token := os.Getenv("SEED_API_TOKEN"); token != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash api token: %v", err)
		}
		fmt.Printf("API_TOKEN_HASH=%s\n", hash)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.StoreBackend == app.BackendMemory {
		log.Fatalf("seeding the memory backend is pointless; set STORE_BACKEND")
	}
	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("open backend: %v", err)
	}
	defer backend.Close()
	services, err := app.NewServices(ctx, cfg, backend, app.NewLogger(cfg), nil)
	if err != nil {
		log.Fatalf("init services: %v", err)
	}
	store := services.Freight

	fmt.Println("→ Seeding sales team...")
	priya, err := store.CreateSalesPerson(ctx, freight.SalesPersonInput{
		Name: "Priya Nair", Email: "priya@example.com",
		Policy: finance.CommissionPolicy{Type: finance.CommissionOnProfit, Rate: decimal.NewFromInt(10)},
	})
	must("sales person", err)
	omar, err := store.CreateSalesPerson(ctx, freight.SalesPersonInput{
		Name: "Omar Haddad", Email: "omar@example.com",
		Policy: finance.CommissionPolicy{Type: finance.CommissionOnRevenue, Rate: decimal.NewFromInt(3)},
	})
	must("sales person", err)

	fmt.Println("→ Seeding an open enquiry...")
	_, err = store.CreateEnquiry(ctx, freight.EnquiryInput{
		CustomerName: "Blue Harbor Foods", Email: "ops@blueharbor.example", Phone: "(202) 456-1111",
		Origin: "Chennai", Destination: "Rotterdam", Commodity: "Frozen prawns",
		WeightKg: decimal.NewFromInt(4200), CBM: decimal.NewFromInt(28),
		Mode: documents.ModeSea, ShipmentType: documents.ShipmentExport, SalesPersonID: omar.ID,
	})
	must("enquiry", err)

	fmt.Println("→ Seeding a job in transit...")
	transit := openJob(ctx, store, freight.EnquiryInput{
		CustomerName: "Kestrel Auto Parts", Origin: "Frankfurt", Destination: "Dubai",
		Commodity: "Brake assemblies", WeightKg: decimal.NewFromInt(850), CBM: decimal.NewFromInt(6),
		Mode: documents.ModeAir, ShipmentType: documents.ShipmentImport, SalesPersonID: omar.ID,
	}, "36.8", "50.6", "EUR")
	_, err = store.RecordAgentPurchase(ctx, transit.No, freight.PurchaseInput{
		Vendor: "Gulf Air Cargo", Description: "Airfreight FRA-DXB", Amount: decimal.RequireFromString("220.80"), Currency: "EUR",
	})
	must("purchase", err)
	_, err = store.UpdateJobStatus(ctx, transit.No, freight.JobInProgress, "cargo booked")
	must("job status", err)
	_, err = store.UpdateJobStatus(ctx, transit.No, freight.JobInTransit, "departed FRA")
	must("job status", err)

	fmt.Println("→ Seeding a closed job...")
	closed := openJob(ctx, store, freight.EnquiryInput{
		CustomerName: "Acme Textiles", Origin: "Nhava Sheva", Destination: "Jebel Ali",
		Commodity: "Cotton yarn", CBM: decimal.NewFromInt(10),
		Mode: documents.ModeSea, ShipmentType: documents.ShipmentExport, SalesPersonID: priya.ID,
	}, "40", "55", "USD")
	_, err = store.RecordAgentPurchase(ctx, closed.No, freight.PurchaseInput{
		Vendor: "Oceanic Lines", Amount: decimal.NewFromInt(300), Currency: "USD",
	})
	must("purchase", err)
	inv, err := store.CreateInvoiceFromJob(ctx, closed.No, freight.InvoiceInput{})
	must("invoice", err)
	_, err = store.RecordPayment(ctx, inv.No, freight.PaymentInput{Amount: inv.Total, Method: "wire", Reference: "TT-20240603"})
	must("payment", err)
	for _, entry := range closed.Checklist {
		if !entry.Required {
			continue
		}
		_, err := store.UpdateDocumentChecklist(ctx, closed.No, entry.Key, documents.Update{Status: documents.StatusReceived})
		must("checklist", err)
	}
	_, err = store.CloseJob(ctx, closed.No, "delivered")
	must("close job", err)

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func openJob(ctx context.Context, store *freight.Store, input freight.EnquiryInput, agent, customer, currency string) freight.Job {
	enq, err := store.CreateEnquiry(ctx, input)
	must("enquiry", err)
	q, err := store.CreateQuotationFromEnquiry(ctx, enq.No, freight.QuotationInput{
		AgentRate: decimal.RequireFromString(agent), CustomerRate: decimal.RequireFromString(customer), Currency: currency,
	})
	must("quotation", err)
	_, err = store.ApproveQuotation(ctx, q.No)
	must("approve quotation", err)
	job, err := store.ConvertQuotationToJob(ctx, q.No)
	must("convert quotation", err)
	return job
}

func must(step string, err error) {
	if err != nil {
		log.Fatalf("seed %s: %v", step, err)
	}
}
