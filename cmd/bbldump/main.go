// Command bbldump opens a blackbox flight log and prints a summary of its
// sub-logs, or dumps one time range's decoded frames as CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/arloliu/bblog/blackbox"
)

func main() {
	var (
		subLog  = flag.Int("sublog", 0, "sub-log index to inspect")
		csvFrom = flag.Int("from", -1, "dump frames from this time (us) as CSV")
		csvTo   = flag.Int("to", -1, "dump frames up to this time (us) as CSV")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.bbl>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to read log file: %v", err)
	}

	l, err := blackbox.Open(data)
	if err != nil {
		log.Fatalf("failed to open blackbox log: %v", err)
	}

	fmt.Printf("sub-logs: %d\n", l.GetLogCount())
	for i := 0; i < l.GetLogCount(); i++ {
		if errMsg, err := l.GetLogError(i); err != nil {
			log.Fatalf("failed to read sub-log %d: %v", i, err)
		} else if errMsg != "" {
			fmt.Printf("  [%d] error: %s\n", i, errMsg)
			continue
		}

		minT, _ := l.GetMinTime(i)
		maxT, _ := l.GetMaxTime(i)
		fmt.Printf("  [%d] time range: %d..%d us\n", i, minT, maxT)
	}

	if err := l.OpenSubLog(*subLog); err != nil {
		log.Fatalf("failed to open sub-log %d: %v", *subLog, err)
	}

	printActivitySummary(l)

	if *csvFrom >= 0 && *csvTo >= 0 {
		if err := dumpCSV(l, int32(*csvFrom), int32(*csvTo)); err != nil {
			log.Fatalf("failed to dump CSV: %v", err)
		}
	}
}

func printActivitySummary(l *blackbox.Log) {
	times, avgThrottle, hasEvent, err := l.GetActivitySummary()
	if err != nil {
		log.Fatalf("failed to read activity summary: %v", err)
	}

	fmt.Printf("chunks: %d\n", len(times))
	for i, t := range times {
		marker := ""
		if hasEvent[i] {
			marker = " (event)"
		}
		fmt.Printf("  t=%d avgThrottle=%.1f%s\n", t, avgThrottle[i], marker)
	}
}

func dumpCSV(l *blackbox.Log, from, to int32) error {
	entries, err := l.GetChunksInTimeRange(from, to)
	if err != nil {
		return fmt.Errorf("failed to decode chunks: %w", err)
	}

	names := l.GetMainFieldNames()
	w := os.Stdout
	for i, n := range names {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprint(w, n)
	}
	fmt.Fprintln(w)

	for _, e := range entries {
		for _, frame := range e.Frames {
			for i, v := range frame {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprint(w, v)
			}
			fmt.Fprintln(w)
		}
	}

	return nil
}
