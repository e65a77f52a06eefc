package main

import (
	"flag"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/m-lab/go/cloud/bqx"
	"github.com/m-lab/go/rtx"

	"github.com/betocq/betocq/pkg/nc/model"
)

var (
	iterationSchema string
	runSchema       string
)

func init() {
	flag.StringVar(&iterationSchema, "iteration", "/var/spool/datatypes/iteration.json", "filename to write iteration schema")
	flag.StringVar(&runSchema, "run", "/var/spool/datatypes/run.json", "filename to write run schema")
}

func main() {
	flag.Parse()
	// Generate and save schemas for autoloading.
	// iteration schema.
	iteration := model.IterationArchive{}
	sch, err := bigquery.InferSchema(iteration)
	rtx.Must(err, "failed to generate iteration schema")
	sch = bqx.RemoveRequired(sch)
	b, err := sch.ToJSONFields()
	rtx.Must(err, "failed to marshal iteration schema")
	err = os.WriteFile(iterationSchema, b, 0o644)
	rtx.Must(err, "failed to write iteration schema")
	// run schema.
	run := model.RunArchive{}
	sch, err = bigquery.InferSchema(run)
	rtx.Must(err, "failed to generate run schema")
	sch = bqx.RemoveRequired(sch)
	b, err = sch.ToJSONFields()
	rtx.Must(err, "failed to marshal run schema")
	err = os.WriteFile(runSchema, b, 0o644)
	rtx.Must(err, "failed to write run schema")
}
