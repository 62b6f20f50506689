package store_test

import (
	"context"

	"github.com/fsouza/fake-gcs-server/fakestorage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-separator/src/shared/cloud_storage/store"
	"github.com/veedubyou/vocal-separator/src/shared/testing"
)

const (
	storageHost = "https://storage.example"
	bucketName  = "separations-test"
)

var _ = Describe("GoogleFileStore", func() {
	var (
		server    *fakestorage.Server
		fileStore store.GoogleFileStore
		ctx       context.Context
	)

	BeforeEach(func() {
		server = fakestorage.NewServer(nil)
		DeferCleanup(server.Stop)
		server.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: bucketName})

		fileStore = store.NewGoogleFileStoreFromClient(storageHost+"/", server.Client())
		ctx = context.Background()
	})

	It("writes objects under the bucket named in the URL", func() {
		url := storageHost + "/" + bucketName + "/separations/job-1/song_vocals.mp3"
		Expect(fileStore.WriteFile(ctx, url, []byte("vocals"))).To(Succeed())

		object := testing.ExpectSuccess(server.GetObject(bucketName, "separations/job-1/song_vocals.mp3"))
		Expect(object.Content).To(BeEquivalentTo("vocals"))
	})

	It("reads back what it wrote", func() {
		url := storageHost + "/" + bucketName + "/a/b.mp3"
		Expect(fileStore.WriteFile(ctx, url, []byte("contents"))).To(Succeed())

		Expect(fileStore.GetFile(ctx, url)).To(BeEquivalentTo("contents"))
	})

	It("fails to read a missing object", func() {
		_, err := fileStore.GetFile(ctx, storageHost+"/"+bucketName+"/missing.mp3")
		Expect(err).To(HaveOccurred())
	})

	It("refuses URLs from another host", func() {
		err := fileStore.WriteFile(ctx, "https://elsewhere.example/"+bucketName+"/a.mp3", []byte("x"))
		Expect(err).To(MatchError(ContainSubstring("does not belong to the storage host")))
	})

	It("refuses URLs without an object name", func() {
		err := fileStore.WriteFile(ctx, storageHost+"/"+bucketName, []byte("x"))
		Expect(err).To(MatchError(ContainSubstring("missing a bucket or object name")))
	})
})
