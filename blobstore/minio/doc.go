// Package minio stores yocto containers in MinIO and other S3-compatible
// object stores through minio-go.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	store := minioblob.NewStore(client, "containers", "dbs/")
//	err = writable.Publish(ctx, store, "users.yocto")
//	db, err := yocto.OpenBlob(ctx, store, "users.yocto")
//
// Streamed uploads go through multipart PutObject and reads are ranged
// GETs, so OpenBlob downloads a container in parallel parts.
package minio
