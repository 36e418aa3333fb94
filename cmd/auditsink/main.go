// auditsink consumes moderation audit events from Kafka and mirrors them
// into the audit_log table, so the trail survives even when the API process
// wrote its local copy to a store that was later reset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/codewithtanvir/find-your-ride-partner/internal/backend"
	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auditsink_messages_consumed_total",
		Help: "Total audit events consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auditsink_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	storeWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auditsink_store_writes_total",
		Help: "Total audit entries persisted",
	})
	storeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auditsink_store_errors_total",
		Help: "Total persistence errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, storeWrites, storeErrors)
}

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	brokers := []string{"localhost:9092"}
	if env := os.Getenv("KAFKA_BROKERS"); env != "" {
		brokers = brokers[:0]
		for _, b := range strings.Split(env, ",") {
			if s := strings.TrimSpace(b); s != "" {
				brokers = append(brokers, s)
			}
		}
	}
	topic := os.Getenv("AUDIT_TOPIC")
	if topic == "" {
		topic = "moderation-audit"
	}
	group := os.Getenv("KAFKA_GROUP")
	if group == "" {
		group = "audit-sink"
	}

	dsn := os.Getenv("PG_DSN")
	var store backend.Store
	if dsn != "" {
		ps, err := backend.NewPostgresStore(dsn)
		if err != nil {
			log.Fatalf("postgres unavailable: %v", err)
		}
		defer ps.Close()
		store = ps
	} else {
		log.Println("PG_DSN not set, entries will only be counted")
		store = backend.NewMemoryStore()
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		log.Printf("metrics/health listening on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: group, MinBytes: 10e3, MaxBytes: 10e6})
	defer r.Close()

	log.Printf("auditsink listening topic=%s brokers=%v group=%s", topic, brokers, group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("shutting down auditsink")
				return
			}
			log.Printf("kafka read error: %v; backing off %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		var e models.AuditEntry
		if err := json.Unmarshal(m.Value, &e); err != nil {
			msgsInvalid.Inc()
			log.Printf("invalid message: %v", err)
			continue
		}

		if err := saveWithRetry(ctx, store, &e, 3, 200*time.Millisecond); err != nil {
			storeErrors.Inc()
			log.Printf("audit save failed for target=%s: %v", e.TargetID, err)
			continue
		}
		storeWrites.Inc()
	}
}

// AuditSaver is the subset of the store this binary needs; tests supply a fake.
type AuditSaver interface {
	SaveAudit(ctx context.Context, e *models.AuditEntry) error
}

// saveWithRetry persists an entry with bounded retries and backoff.
func saveWithRetry(ctx context.Context, store AuditSaver, e *models.AuditEntry, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = store.SaveAudit(ctx, e); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
