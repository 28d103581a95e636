package environment

import (
	"strings"
	"text/template"
)

// jobSpecTemplate renders a Slurm array-job submission script. Filled in by
// Cluster.Submit for every batch, mirroring the reference's
// slurm-array-job.template and its string-format-based filling.
var jobSpecTemplate = template.Must(template.New("slurm-array-job").Parse(`#!/bin/bash
#SBATCH --job-name={{.JobName}}
#SBATCH --array=0-{{.LastTaskIndex}}
#SBATCH --partition={{.Partition}}
#SBATCH --qos={{.QOS}}
#SBATCH --cpus-per-task={{.CPUsPerTask}}
#SBATCH --mem-per-cpu={{.MemoryPerCPU}}
#SBATCH --nice={{.Nice}}
#SBATCH --output={{.LogFile}}
#SBATCH --error={{.ErrFile}}
#SBATCH --mail-type={{.MailType}}
{{- if .MailUser}}
#SBATCH --mail-user={{.MailUser}}
{{- end}}
{{.ExtraOptions}}

{{.EnvironmentSetup}}

ulimit -v {{.SoftMemoryLimitKiB}}

RUN_DIRS=({{.RunDirs}})
RUN_DIR=${RUN_DIRS[$SLURM_ARRAY_TASK_ID]}

cd "$RUN_DIR"
{{.Evaluator}} "$RUN_DIR/{{.StateFilename}}"
echo $? > "$RUN_DIR/exit_code"
`))

// jobSpecParams supplies the template variables named in the job-spec
// contract: partition, qos, memory_per_cpu, soft_memory_limit (KiB), nice,
// extra_options, environment_setup, mailtype, mailuser, script path, state
// filename, run_dirs (space-joined), job name, and array size.
type jobSpecParams struct {
	JobName            string
	LastTaskIndex      int
	Partition          string
	QOS                string
	CPUsPerTask        int
	MemoryPerCPU       string
	Nice               int
	LogFile            string
	ErrFile            string
	MailType           string
	MailUser           string
	ExtraOptions       string
	EnvironmentSetup   string
	SoftMemoryLimitKiB int64
	RunDirs            string
	Evaluator          string
	StateFilename      string
}

func renderJobSpec(params jobSpecParams) (string, error) {
	var buf strings.Builder
	if err := jobSpecTemplate.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}
