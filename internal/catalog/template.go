package catalog

import (
	"strconv"
	"time"

	"dagtemplate/internal/core"
)

// SimpleTemplateID carries a version suffix. Changing the schedule means
// bumping the suffix, never editing the schedule in place.
const SimpleTemplateID = "Lendkey_DagTemplate-Simple-V1"

// ParallelWidth is the fixed size of the template's parallel group.
const ParallelWidth = 3

// simpleTemplateDoc is shown in the orchestrator UI next to the definition.
const simpleTemplateDoc = `
BEST PRACTICE: Document your DAG by putting in a docstring to explain at a high level
what problem space the DAG is looking at. Including links to design documents, upstream dependencies etc
are highly recommended. Note that by doing this, it will flow through to the AirFlow UI so you can actually
see this when using the Scheduler. It is important to include dag.doc_md = __doc__ in your code for this to work.
`

// SimpleTemplate builds the bundled template definition:
//
//	runme_0 ┐
//	runme_1 ├─> run_after_loop ─┐
//	runme_2 ┘                   ├─> run_this_last
//	also_run_this ──────────────┘
func SimpleTemplate() (*core.Job, error) {
	b := core.NewJob(SimpleTemplateID).
		Owner("Airflow").
		Schedule("0 0 * * *").
		Timeout(60 * time.Minute).
		Doc(simpleTemplateDoc).
		Tags("This is a simple DAG template - start with this.")

	runThisLast := b.NoOp("run_this_last")

	runThis := b.Shell("run_after_loop", "echo 1")
	runThis.Then(runThisLast)

	for i := 0; i < ParallelWidth; i++ {
		b.Shell("runme_"+strconv.Itoa(i), `echo "{{ task_instance_key_str }}" && sleep 1`).Then(runThis)
	}

	b.Shell("also_run_this", `echo "run_id={{ run_id }} | dag_run={{ dag_run }}"`).Then(runThisLast)

	return b.Build()
}

func init() {
	MustRegister(SimpleTemplate)
}
