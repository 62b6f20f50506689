package storagepath

import "fmt"

const separationsDir = "separations"

type Generator struct {
	Host   string
	Bucket string
}

func (g Generator) GeneratePath(jobID string, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", g.Host, g.Bucket, separationsDir, jobID, fileName)
}
