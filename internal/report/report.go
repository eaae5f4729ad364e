package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/pkg/model"
)

// Write renders one policy run's summary and the recorder's aggregates as a
// human-readable report.
func Write(w io.Writer, sum model.Summary, rec *recorder.Recorder, buckets int) error {
	fmt.Fprintf(w, "policy %s: %s completed, %s failed of %s tasks in %s\n",
		sum.Policy,
		humanize.Comma(int64(sum.Completed)),
		humanize.Comma(int64(sum.Failed)),
		humanize.Comma(int64(sum.Total)),
		sum.Elapsed.Round(time.Millisecond),
	)

	byType := rec.SnapshotByType()
	if len(byType) > 0 {
		fmt.Fprintln(w, "\nby type:")
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		for _, typ := range model.AllTaskTypes() {
			s, ok := byType[typ]
			if !ok {
				continue
			}
			avg := time.Duration(0)
			if s.Count > 0 {
				avg = s.Total / time.Duration(s.Count)
			}
			fmt.Fprintf(tw, "  %s\t%s tasks\tavg %s\n",
				typ, humanize.Comma(int64(s.Count)), avg.Round(time.Microsecond))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	byWorker := rec.SnapshotByWorker()
	if len(byWorker) > 0 {
		workers := make([]int, 0, len(byWorker))
		for id := range byWorker {
			workers = append(workers, id)
		}
		sort.Ints(workers)

		fmt.Fprintln(w, "\nby worker:")
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		for _, id := range workers {
			total := 0
			for _, s := range byWorker[id] {
				total += s.Count
			}
			fmt.Fprintf(tw, "  worker %d\t%s tasks\n", id, humanize.Comma(int64(total)))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if samples := rec.ThroughputOverTime(buckets); len(samples) > 0 {
		fmt.Fprintln(w, "\nthroughput:")
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		prev := time.Duration(0)
		for _, s := range samples {
			fmt.Fprintf(tw, "  [%s - %s]\t%s tasks/s\n",
				prev.Round(time.Millisecond),
				s.BucketEnd.Round(time.Millisecond),
				humanize.FtoaWithDigits(s.PerSecond, 1))
			prev = s.BucketEnd
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// WriteComparison renders one line per policy for a compare-all run.
func WriteComparison(w io.Writer, sums []model.Summary) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "policy\tcompleted\tfailed\ttotal\telapsed")
	for _, sum := range sums {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			sum.Policy,
			humanize.Comma(int64(sum.Completed)),
			humanize.Comma(int64(sum.Failed)),
			humanize.Comma(int64(sum.Total)),
			sum.Elapsed.Round(time.Millisecond),
		)
	}
	return tw.Flush()
}
