// studentctl is the command line front end to the student record store.
//
//	studentctl --config=config/local.yaml add --name "Ann Lee" --email ann@school.edu --roll A-1 --class 10B
//	studentctl --config=config/local.yaml list --query ann --sort roll
//	studentctl --config=config/local.yaml export -o students.xlsx
package main

import (
	"fmt"
	"os"

	"github.com/aanand-mishra/student-records/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
