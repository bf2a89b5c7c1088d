package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/idelchi/dirspace/internal/dirspace"
	"github.com/idelchi/dirspace/internal/walk"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// PrintJSON outputs the result in JSON format.
func PrintJSON(result *dirspace.Result, writer io.Writer) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintYAML outputs the result in YAML format.
func PrintYAML(result *dirspace.Result, writer io.Writer) error {
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)

	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}

	return enc.Close()
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}

	return 100.0 * float64(part) / float64(total)
}

// PrintTable outputs the result in human-readable table format.
func PrintTable(result *dirspace.Result, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)

	printExtensions(w, result)

	fmt.Fprintln(w, "\nTop files:\t\t")

	for i, f := range result.TopFiles {
		fmt.Fprintf(w, "  %d) '%s'\t%s (%.1f%%)\n",
			len(result.TopFiles)-i, f.Path, humanize.IBytes(f.Size), percent(f.Size, result.TotalBytes))
	}

	fmt.Fprintln(w, "\nTop directories:\t\t")

	for i, d := range result.TopDirs {
		fmt.Fprintf(w, "  %d) '%s'\t%s (%.1f%%)\n",
			len(result.TopDirs)-i, d.Path, humanize.IBytes(d.Size), percent(d.Size, result.TotalBytes))
	}

	if len(result.SameSize) > 0 {
		fmt.Fprintln(w, "\nSame size:\t\t")

		for _, group := range result.SameSize {
			fmt.Fprintf(w, "  %s\t%d files\n", humanize.IBytes(group.Size), len(group.Files))

			for _, file := range group.Files {
				fmt.Fprintf(w, "    '%s'\t\n", file)
			}
		}
	}

	if len(result.Roots) > 1 {
		fmt.Fprintln(w, "\nRoots:\t\t")

		roots := make([]string, 0, len(result.Roots))
		for root := range result.Roots {
			roots = append(roots, root)
		}

		slices.Sort(roots)

		for _, root := range roots {
			size := result.Roots[root]
			fmt.Fprintf(w, "  '%s'\t%s (%.1f%%)\n", root, humanize.IBytes(size), percent(size, result.TotalBytes))
		}
	}

	if len(result.Volumes) > 0 {
		fmt.Fprintln(w, "\nVolumes:\t\t")

		roots := make([]string, 0, len(result.Volumes))
		for root := range result.Volumes {
			roots = append(roots, root)
		}

		slices.Sort(roots)

		for _, root := range roots {
			v := result.Volumes[root]
			fmt.Fprintf(w, "  '%s'\t%s used of %s, %s available (block size %s)\n",
				root,
				humanize.IBytes(v.UsedBytes()),
				humanize.IBytes(v.TotalBytes),
				humanize.IBytes(v.AvailableBytes),
				humanize.IBytes(v.BlockSize))
		}
	}

	// Stats summary
	fmt.Fprintln(w, "\nStats:\t\t")
	fmt.Fprintf(w, "Total files:\t%d\n", result.FileCount)
	fmt.Fprintf(w, "Total directories:\t%d\n", len(result.Totals))
	fmt.Fprintf(w, "Total size:\t%s (%d bytes)\n", humanize.IBytes(result.TotalBytes), result.TotalBytes)

	if result.ErrorCount > 0 {
		fmt.Fprintf(w, "Errors:\t%d\n", result.ErrorCount)
	}

	if result.Truncated {
		fmt.Fprintf(w, "Truncated:\t%v\n", result.Truncated)
	}

	fmt.Fprintf(w, "\nElapsed:\t%v\n", result.Elapsed)

	return w.Flush()
}

// printExtensions lists the TopN extensions by size, smallest first.
func printExtensions(w io.Writer, result *dirspace.Result) {
	fmt.Fprintln(w, "\nTop extensions:\t\t")

	extList := make([]string, 0, len(result.ExtStats))
	for ext := range result.ExtStats {
		extList = append(extList, ext)
	}

	sort.Slice(extList, func(i, j int) bool {
		a, b := result.ExtStats[extList[i]], result.ExtStats[extList[j]]
		if a.Size != b.Size {
			return a.Size < b.Size
		}

		return extList[i] > extList[j]
	})

	startIdx := 0
	if result.TopN > 0 && len(extList) > result.TopN {
		startIdx = len(extList) - result.TopN
	}

	displayList := extList[startIdx:]
	for i, ext := range displayList {
		extStat := result.ExtStats[ext]
		if ext == "" {
			ext = "\"\""
		}

		fmt.Fprintf(w, "  %d) %s:\t%d files, %s (%.1f%%)\n",
			len(displayList)-i, ext, extStat.Count, humanize.IBytes(extStat.Size), percent(extStat.Size, result.TotalBytes))
	}
}

// PrintTree outputs every collected tree with the size of each entry.
func PrintTree(result *dirspace.Result, writer io.Writer) error {
	roots := make([]string, 0, len(result.Trees))
	for root := range result.Trees {
		roots = append(roots, root)
	}

	slices.Sort(roots)

	for _, root := range roots {
		tree := result.Trees[root]

		if _, err := fmt.Fprintf(writer, "%s (%s)\n", root, humanize.IBytes(treeSize(tree.Root))); err != nil {
			return err
		}

		if err := printNode(writer, tree.Root, 1); err != nil {
			return err
		}
	}

	return nil
}

func printNode(writer io.Writer, node *walk.Node, level int) error {
	indent := strings.Repeat("  ", level)

	for _, name := range node.Names() {
		child := node.Children[name]

		line := fmt.Sprintf("%s%s", indent, name)

		switch {
		case child.Entry == nil:
			line += fmt.Sprintf(" [%v]", child.Err)
		case child.IsDir():
			line += fmt.Sprintf("/ (%s)", humanize.IBytes(treeSize(child)))
		default:
			line += fmt.Sprintf(" (%s)", humanize.IBytes(child.Entry.Metadata.Size))
		}

		if child.Entry != nil && child.Err != nil {
			line += fmt.Sprintf(" [%v]", child.Err)
		}

		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}

		if err := printNode(writer, child, level+1); err != nil {
			return err
		}
	}

	return nil
}

// treeSize sums the sizes of the regular files below node.
func treeSize(node *walk.Node) uint64 {
	var size uint64

	node.Walk(func(n *walk.Node) {
		if n.Entry != nil && n.Entry.Traits.File {
			size += n.Entry.Metadata.Size
		}
	})

	return size
}
