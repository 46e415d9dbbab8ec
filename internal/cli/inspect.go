package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	rosbag2 "github.com/lherman-cs/go-rosbag2"
	"github.com/lherman-cs/go-rosbag2/internal/catalog"
	"github.com/lherman-cs/go-rosbag2/internal/recording"
	"github.com/lherman-cs/go-rosbag2/internal/store"
)

var (
	inspectCount int
	inspectFlat  bool
)

var errStopInspect = errors.New("enough records")

var inspectCmd = &cobra.Command{
	Use:   "inspect <recording> <topic>",
	Short: "Pretty-print the decoded messages of one topic",
	Example: `  # First 10 messages of /imu
  rosbag2csv inspect ./bags/rosbag2_2024_01_01 /imu

  # First 3 messages as CSV columns
  rosbag2csv inspect ./bags/rosbag2_2024_01_01 /imu -n 3 --flat`,
	Args: cobra.ExactArgs(2),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVarP(&inspectCount, "count", "n", 10, "number of messages to print, 0 prints all")
	inspectCmd.Flags().BoolVar(&inspectFlat, "flat", false, "print the flattened columns instead of the message tree")
}

func runInspect(cmd *cobra.Command, args []string) error {
	dir, topic := args[0], args[1]

	reg, err := newRegistry(viperMsgPaths())
	if err != nil {
		return err
	}

	rec := recording.Recording{Name: filepath.Base(dir), Dir: dir}
	m, storePath, err := rec.Load()
	if err != nil {
		return err
	}

	ch, ok := catalog.Build(m.Topics).Lookup(topic)
	if !ok {
		return fmt.Errorf("%s: the manifest has no topic %s", rec.Name, topic)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(ctx, storePath, store.Options{
		CompressionMode:   m.CompressionMode,
		CompressionFormat: m.CompressionFormat,
	}, zap.NewNop())
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.ResolveTopicID(ctx, topic)
	if err != nil {
		return err
	}

	decode, err := reg.Resolve(ch.Type)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printed := 0
	err = st.EachRecord(ctx, id, func(record store.RawRecord) error {
		native, err := decode(record.Data)
		if err != nil {
			return &rosbag2.DecodeError{Type: ch.Type, Err: err}
		}

		fmt.Fprintf(out, "# %d %s\n", printed, rosbag2.StampToTime(record.Timestamp).Format("2006-01-02T15:04:05.000000000Z"))
		if inspectFlat {
			pp.Fprintln(out, rosbag2.Flatten(rosbag2.Lower(native)))
		} else {
			pp.Fprintln(out, native)
		}

		printed++
		if inspectCount > 0 && printed >= inspectCount {
			return errStopInspect
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopInspect) {
		return err
	}

	return nil
}
