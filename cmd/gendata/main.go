// Command gendata writes a synthetic sensor CSV and can notify a running
// service about it, which is handy for local end-to-end runs.
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default configuration constants.
const (
	defaultRows     = 500
	defaultHighFrac = 0.2
	defaultBucket   = "uploads"
	defaultTimeout  = 10 * time.Second
)

var header = []string{
	"user_id", "timestamp", "location_id",
	"temperature_celsius", "humidity_percent", "air_quality_index",
	"noise_level_db", "lighting_lux", "crowd_density",
	"sleep_hours", "mood_score", "stress_level",
}

func main() {
	var (
		rows     = flag.Int("rows", defaultRows, "Number of readings to generate")
		highFrac = flag.Float64("high", defaultHighFrac, "Fraction of readings with elevated stress")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		root     = flag.String("root", "data", "Source root directory")
		bucket   = flag.String("bucket", defaultBucket, "Bucket directory under the root")
		name     = flag.String("name", "", "Output file name (default: readings_TIMESTAMP.csv)")
		notify   = flag.String("notify", "", "Base URL of a running service to POST /ingest to")
	)
	flag.Parse()

	file := *name
	if file == "" {
		file = fmt.Sprintf("readings_%d.csv", time.Now().Unix())
	}

	dir := filepath.Join(*root, *bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		os.Stderr.WriteString("creating output directory: " + err.Error() + "\n")
		os.Exit(1)
	}

	path := filepath.Join(dir, file)
	if err := writeCSV(path, *rows, *highFrac, rand.New(rand.NewSource(*seed))); err != nil {
		os.Stderr.WriteString("writing csv: " + err.Error() + "\n")
		os.Exit(1)
	}
	fmt.Printf("wrote %d readings to %s\n", *rows, path)

	if *notify != "" {
		if err := notifyService(*notify, *bucket, file); err != nil {
			os.Stderr.WriteString("notifying service: " + err.Error() + "\n")
			os.Exit(1)
		}
		fmt.Printf("notified %s about %s/%s\n", *notify, *bucket, file)
	}
}

func writeCSV(path string, rows int, highFrac float64, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}

	start := time.Now().Add(-time.Duration(rows) * time.Minute).UTC()
	for i := 0; i < rows; i++ {
		high := rng.Float64() < highFrac
		stress := rng.Float64() * 40
		if high {
			stress = 43 + rng.Float64()*57
		}

		row := []string{
			fmt.Sprintf("user-%03d", rng.Intn(100)),
			start.Add(time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05"),
			strconv.Itoa(101 + rng.Intn(5)),
			num(rng, 15, 35),
			num(rng, 20, 90),
			num(rng, 10, 200),
			num(rng, 30, 100),
			num(rng, 50, 1000),
			num(rng, 0, 1),
			num(rng, 3, 9),
			num(rng, 1, 10),
			fmt.Sprintf("%.1f", stress),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func num(rng *rand.Rand, lo, hi float64) string {
	return fmt.Sprintf("%.2f", lo+rng.Float64()*(hi-lo))
}

func notifyService(baseURL, bucket, file string) error {
	body := fmt.Sprintf(`{"source_bucket":%q,"source_file":%q}`, bucket, file)
	client := &http.Client{Timeout: defaultTimeout}
	resp, err := client.Post(baseURL+"/ingest", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
