package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/yndnr/micropay-go/internal/core/domain"
	"github.com/yndnr/micropay-go/internal/core/service"
)

// AccountCounts are the registry sizes benchmarked.
var AccountCounts = []int{100, 1000, 10000}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func username(i int) string {
	return fmt.Sprintf("user%d", i)
}

// prefillRegistry registers count accounts and logs every one of them in.
func prefillRegistry(b *testing.B, count int, opts ...service.RegistryOption) *service.Registry {
	b.Helper()
	ctx := context.Background()
	opts = append([]service.RegistryOption{service.WithLogger(quietLogger())}, opts...)
	reg := service.NewRegistry(service.DefaultRegistryConfig(), opts...)

	for i := 0; i < count; i++ {
		if err := reg.Register(ctx, username(i), 1_000_000); err != nil {
			b.Fatalf("Register: %v", err)
		}
		sid, err := domain.GenerateSessionID()
		if err != nil {
			b.Fatalf("GenerateSessionID: %v", err)
		}
		if _, err := reg.Login(ctx, username(i), "127.0.0.1", 10000+i%50000, sid); err != nil {
			b.Fatalf("Login: %v", err)
		}
	}
	return reg
}

// reportMemory reports heap usage as a custom metric.
func reportMemory(b *testing.B, name string) {
	b.Helper()
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.HeapAlloc)/1024/1024, name+"_MB")
}
