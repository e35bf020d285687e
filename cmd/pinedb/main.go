// Command pinedb is a line-oriented shell over a disk-backed buffer
// pool. It exists to exercise the pool's public contract interactively;
// it has no page-format or eviction logic of its own.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"pinedb/buffer"
	"pinedb/storage"
)

func main() {
	path := flag.String("path", "pinedb.db", "path to the database file")
	pageSize := flag.Int("page-size", storage.DefaultPageSize, "page size in bytes")
	frames := flag.Int("frames", 64, "number of buffer pool frames")
	flag.Parse()

	log := logrus.StandardLogger()
	backend := storage.NewDiskBackend(*path, *pageSize)
	defer backend.Close()

	pool := buffer.NewPool(backend, *frames, buffer.WithLogger(log))

	log.WithFields(logrus.Fields{"path": *path, "page_size": *pageSize, "frames": *frames}).
		Info("pinedb: ready")

	runShell(pool, os.Stdin, os.Stdout, log)
}

func runShell(pool *buffer.Pool, in *os.File, out *os.File, log *logrus.Logger) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "pinedb> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "new":
			pageID := pool.NewPage()
			if pageID == buffer.InvalidPageID {
				fmt.Fprintln(out, "error: no free frame")
				continue
			}
			fmt.Fprintln(out, pageID)
			pool.UnpinPage(pageID)

		case "get":
			id, err := parsePageID(args)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			ptr := pool.FetchPage(id)
			if ptr == nil {
				fmt.Fprintln(out, "error: page not found or no free frame")
				continue
			}
			fmt.Fprintf(out, "%x\n", ptr)
			pool.UnpinPage(id)

		case "put":
			if len(args) < 2 {
				fmt.Fprintln(out, "usage: put <id> <bytes...>")
				continue
			}
			id, err := parsePageID(args[:1])
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			ptr := pool.FetchPage(id)
			if ptr == nil {
				fmt.Fprintln(out, "error: page not found or no free frame")
				continue
			}
			n := copy(ptr, []byte(strings.Join(args[1:], " ")))
			_ = n
			pool.SetDirty(id)
			pool.UnpinPage(id)
			fmt.Fprintln(out, "ok")

		case "del":
			id, err := parsePageID(args)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			if !pool.DeletePage(id) {
				fmt.Fprintln(out, "error: delete failed")
				continue
			}
			fmt.Fprintln(out, "ok")

		case "flush":
			id, err := parsePageID(args)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			if !pool.FlushPage(id) {
				fmt.Fprintln(out, "error: flush failed")
				continue
			}
			fmt.Fprintln(out, "ok")

		case "flushall":
			pool.FlushAll()
			fmt.Fprintln(out, "ok")

		case "stats":
			fmt.Fprintf(out, "frames=%d\n", pool.NumFrames())

		case "quit", "exit":
			return

		default:
			fmt.Fprintf(out, "unknown command: %s\n", cmd)
		}
	}
}

func parsePageID(args []string) (int32, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing page id")
	}
	n, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid page id %q", args[0])
	}
	return int32(n), nil
}
