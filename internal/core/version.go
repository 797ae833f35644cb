package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// versionNamespace scopes definition versions so they never collide with other
// name-based UUIDs.
var versionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("dagtemplate/job-definition"))

// computeVersion derives a name-based UUID from the canonical JSON form of the
// job. Declaration order does not change the version; any change to metadata,
// steps or edges does.
func computeVersion(job *Job) (string, error) {
	data, err := json.Marshal(documentFromJob(job).canonical())
	if err != nil {
		return "", fmt.Errorf("job %q: canonical form: %w", job.id, err)
	}
	return uuid.NewSHA1(versionNamespace, data).String(), nil
}
