package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/booking-admin-bulk-api/internal/engine"
	"github.com/booking-admin-bulk-api/internal/importer"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/repository"
	"github.com/booking-admin-bulk-api/internal/store"
	"github.com/booking-admin-bulk-api/internal/validation"
	"github.com/rs/zerolog"
)

func customerItems(n int) []models.RawRecord {
	items := make([]models.RawRecord, n)
	for i := 0; i < n; i++ {
		items[i] = models.RawRecord{
			"email": fmt.Sprintf("user%06d@test.com", i),
			"name":  fmt.Sprintf("Test User %06d", i),
			"phone": "+1 555 000 1234",
		}
	}
	return items
}

// BenchmarkExecutorCreate benchmarks the chunked create path end to end
// against the in-memory store.
func BenchmarkExecutorCreate(b *testing.B) {
	items := customerItems(1000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		st := store.NewMemoryStore()
		ops := repository.NewOperationRepo(st, zerolog.Nop())
		exec := engine.NewExecutor(st, ops, zerolog.Nop())

		_, err := exec.Execute(context.Background(), &engine.Request{
			OperationKind: models.OpCreate,
			EntityType:    models.EntityCustomers,
			Items:         items,
			Options:       models.Options{ChunkSize: 100},
		})
		if err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkWriteGroupCommit benchmarks staging and committing one full group
func BenchmarkWriteGroupCommit(b *testing.B) {
	st := store.NewMemoryStore()
	record := store.Record{"email": "user@test.com", "name": "Test User"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		g := st.OpenWriteGroup()
		for j := 0; j < 100; j++ {
			g.Stage(store.StageCreate, "customers", fmt.Sprintf("%d-%d", i, j), record)
		}
		if err := g.Commit(context.Background()); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(100*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkValidation benchmarks the customer rule set
func BenchmarkValidation(b *testing.B) {
	validator := validation.NewValidator()
	record := models.RawRecord{
		"email": "test@example.com",
		"name":  "Test User",
		"phone": "+1 (555) 000-1234",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		validator.ValidateCustomer(record)
	}
}

// BenchmarkCSVParsing benchmarks parsing a 1000-row upload
func BenchmarkCSVParsing(b *testing.B) {
	var buf bytes.Buffer
	buf.WriteString("email,name,phone\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&buf, "user%06d@test.com,Test User,+1 555 000 1234\n", i)
	}
	data := buf.Bytes()

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		if _, err := importer.Parse(data, models.FormatCSV); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDedupLookup benchmarks the matching-field query against a
// populated collection.
func BenchmarkDedupLookup(b *testing.B) {
	st := store.NewMemoryStore()
	for i := 0; i < 1000; i++ {
		st.Put("customers", fmt.Sprintf("c%d", i), store.Record{
			"email": fmt.Sprintf("user%06d@test.com", i),
		})
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, err := st.Query(context.Background(), "customers", "email", store.OpEqual, "user000500@test.com")
		if err != nil {
			b.Fatal(err)
		}
	}
}
