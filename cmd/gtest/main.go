// gtest compiles and runs every test program in-process and compares what it
// printed against a golden .json file kept next to it.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tanc/pkg/compiler"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/vm"
)

type Execution struct {
	Stdout      string        `json:"stdout"`
	Diagnostics string        `json:"diagnostics,omitempty"`
	ExitCode    int           `json:"exitCode"`
	Steps       int64         `json:"steps,omitempty"`
	Duration    time.Duration `json:"duration"`
	TimedOut    bool          `json:"timed_out,omitempty"`
}

type GoldenResult struct {
	SourceHash string    `json:"source_hash"`
	Flags      string    `json:"flags,omitempty"`
	Result     Execution `json:"result"`
}

type FileTestResult struct {
	File    string        `json:"file"`
	Status  string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string        `json:"message,omitempty"`
	Diff    string        `json:"diff,omitempty"`
	Golden  *GoldenResult `json:"golden,omitempty"`
	Target  *GoldenResult `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

// Exit codes recorded in golden files.
const (
	exitOK           = 0
	exitCompileError = 1
	exitMachineFault = 2
	exitTimeout      = -1
)

var (
	generateGolden = flag.Bool("generate-golden", false, "Write golden .json files for the selected tests instead of checking them.")
	testFiles      = flag.String("test-files", "tests/*.tan", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Time limit for each test program.")
	stepLimit      = flag.Int64("step-limit", config.DefaultStepLimit, "Instruction limit for each test program.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	if *jobs < 1 {
		*jobs = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	if *generateGolden {
		handleGenerateGolden(ctx, files)
		return
	}
	if !handleRunTestSuite(ctx, files) {
		os.Exit(1)
	}
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

// fileFlags returns the text of a "# flags: ... #" comment in source, or "".
func fileFlags(source []byte) string {
	const marker = "# flags:"
	i := bytes.Index(source, []byte(marker))
	if i < 0 {
		return ""
	}
	rest := source[i+len(marker):]
	if end := bytes.IndexAny(rest, "#\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(string(rest))
}

// execute compiles and runs one source file with a fresh compiler.
func execute(ctx context.Context, file string) (*GoldenResult, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	hash, err := hashFile(file)
	if err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	cfg.StepLimit = *stepLimit
	flags := fileFlags(source)
	if err := cfg.ProcessFlags(flags); err != nil {
		return nil, fmt.Errorf("bad flags %q: %w", flags, err)
	}

	var stdout, diag bytes.Buffer
	c := compiler.New(cfg)
	c.Diagnostics = &diag

	runCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	stats, err := c.CompileAndRun(runCtx, filepath.Base(file), source, &stdout)
	res := Execution{
		Stdout:      stdout.String(),
		Diagnostics: diag.String(),
		Steps:       stats.Steps,
		Duration:    time.Since(start),
	}
	switch {
	case err == nil:
		res.ExitCode = exitOK
	case errors.Is(err, compiler.ErrCompile):
		res.ExitCode = exitCompileError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, vm.ErrStepLimit):
		res.ExitCode = exitTimeout
		res.TimedOut = true
	default:
		res.ExitCode = exitMachineFault
		res.Diagnostics += err.Error() + "\n"
	}
	if *verbose {
		log.Printf("[%s] exit %d in %s (%s)", file, res.ExitCode, res.Duration, stats)
	}
	return &GoldenResult{SourceHash: hash, Flags: flags, Result: res}, nil
}

func handleGenerateGolden(ctx context.Context, files []string) {
	for _, sourceFile := range files {
		log.Printf("Generating golden file for %s...\n", sourceFile)
		result, err := execute(ctx, sourceFile)
		if err != nil {
			log.Fatalf("%s[ERROR]%s Could not generate golden file for %s: %v\n", cRed, cNone, sourceFile, err)
		}
		if result.Result.TimedOut {
			log.Fatalf("%s[ERROR]%s %s did not finish; refusing to record a timeout as golden output\n", cRed, cNone, sourceFile)
		}

		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
		}

		goldenFileName := getJSONPath(sourceFile)
		if *jsonDir != "" {
			if err := os.MkdirAll(*jsonDir, 0755); err != nil {
				log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
			}
		}
		if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
		}
		log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
	}
}

// handleRunTestSuite reports whether every test passed.
func handleRunTestSuite(ctx context.Context, files []string) bool {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(ctx, file)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	return !hasFailures(writeJSONReport(allResults))
}

func testFile(ctx context.Context, file string) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file; run with --generate-golden"}
		}
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden GoldenResult
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	target, err := execute(ctx, file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error(), Golden: &golden}
	}
	result := compareResults(file, &golden, target)
	if golden.SourceHash != "" && golden.SourceHash != target.SourceHash {
		result.Message += " (golden file is older than the source)"
	}
	return result
}

func compareResults(file string, golden, target *GoldenResult) *FileTestResult {
	var diffs strings.Builder
	var failed bool

	ignoredSubstrings := []string{}
	if *ignoreLines != "" {
		ignoredSubstrings = strings.Split(*ignoreLines, ",")
	}

	want, got := golden.Result, target.Result
	if got.TimedOut {
		failed = true
		diffs.WriteString("Program did not finish within the time or step limit.\n")
	}
	if want.ExitCode != got.ExitCode {
		failed = true
		fmt.Fprintf(&diffs, "Exit code mismatch:\n  - Golden: %d\n  - Target: %d\n", want.ExitCode, got.ExitCode)
	}
	if filterOutput(want.Stdout, ignoredSubstrings) != filterOutput(got.Stdout, ignoredSubstrings) {
		failed = true
		fmt.Fprintf(&diffs, "STDOUT mismatch:\n%s", cmp.Diff(want.Stdout, got.Stdout))
	}
	if filterOutput(want.Diagnostics, ignoredSubstrings) != filterOutput(got.Diagnostics, ignoredSubstrings) {
		failed = true
		fmt.Fprintf(&diffs, "Diagnostics mismatch:\n%s", cmp.Diff(want.Diagnostics, got.Diagnostics))
	}

	if failed {
		return &FileTestResult{
			File:    file,
			Status:  "FAIL",
			Message: "Output or exit code mismatch",
			Diff:    diffs.String(),
			Golden:  golden,
			Target:  target,
		}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches golden file", Golden: golden, Target: target}
}

func filterOutput(output string, ignoredSubstrings []string) string {
	if len(ignoredSubstrings) == 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	filteredLines := make([]string, 0, len(lines))

	for _, line := range lines {
		ignore := false
		for _, sub := range ignoredSubstrings {
			if sub != "" && strings.Contains(line, sub) {
				ignore = true
				break
			}
		}
		if !ignore {
			filteredLines = append(filteredLines, line)
		}
	}
	return strings.Join(filteredLines, "\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var totalRuntime time.Duration
	var totalSteps int64

	var maxNameLen int
	for _, result := range results {
		if n := len(filepath.Base(result.File)); n > maxNameLen {
			maxNameLen = n
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	for _, result := range results {
		name := filepath.Base(result.File)
		var color string
		switch result.Status {
		case "PASS":
			passed++
			color = cGreen
		case "FAIL":
			failed++
			color = cRed
		case "SKIP":
			skipped++
			color = cYellow
		default:
			errored++
			color = cRed
		}
		if result.Target != nil {
			totalRuntime += result.Target.Result.Duration
			totalSteps += result.Target.Result.Steps
		}

		if result.Status == "PASS" && !*verbose {
			continue
		}
		fmt.Printf("%s[%s]%s %-*s %s\n", color, result.Status, cNone, maxNameLen, name, result.Message)
		if result.Status == "PASS" && result.Target != nil {
			fmt.Printf("       %s%s%s, %d steps\n", cCyan, formatDuration(result.Target.Result.Duration), cNone, result.Target.Result.Steps)
		}
		fmt.Print(formatDiff(result.Diff))
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if *verbose {
		fmt.Printf("Ran %d instructions in %s.\n", totalSteps, totalRuntime)
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		lineWithIndent := "    " + line
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString(lineWithIndent)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue // Skip files we can't resolve
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
