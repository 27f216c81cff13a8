// Package s3 stores yocto containers in Amazon S3.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "dbs/")
//	err := builder.Publish(ctx, store, "users.yocto")
//
// Reads use ranged GETs, uploads go through the multipart upload manager with
// CRC32C checksums, and PutIfNotExists relies on conditional writes so a
// published container is never replaced.
package s3
