// Package yocto provides an embedded, read-optimized, immutable document
// store.
//
// Documents are merged once, in bulk, into a DatabaseBuilder, compiled into
// a self-describing binary container and then served read-only, typically
// straight from a memory mapping, without deserializing the dataset.
//
// # Quick Start
//
//	b, _ := yocto.NewDatabaseBuilder()
//	b.Merge(yocto.NewDocument().
//	    With("color", yocto.Sortable, yocto.Fixed, yocto.String("red")).
//	    WithPayload([]byte(`{"id":1}`)))
//	w, _ := b.BuildWritable()
//	_ = w.WriteFile(ctx, "colors.yocto")
//
//	db, _ := yocto.Open("colors.yocto")
//	defer db.Close()
//	ids, _ := db.Execute(ctx, yocto.Select().
//	    Where(yocto.Eq("color", yocto.String("red"))).
//	    OrderBy("color", yocto.Asc).
//	    Limit(10))
//
// # Fields
//
// Every field is indexed on its own. The options of the first document
// declaring a field fix its index for the whole container:
//
//   - Filterable: value filters; several values per document
//   - FilterableTrie: like Filterable with a front-coded dictionary
//   - Sortable / Full: one value per document in every document; adds
//     ordering and value lookup
//
// Values are opaque byte strings ordered as unsigned bytes, shorter first.
// Use the typed constructors (Int, Long, Float64, ...) to store numbers so
// that their byte order matches their numeric order.
//
// # Container
//
// A container is the magic "@yDB", a version, one segment per field plus a
// payload segment, and a digest of everything after the header. Opening a
// container checks magic and version (ErrFormat) and, unless disabled with
// WithVerifyChecksum(false), every digest (ErrCorrupt).
//
// # Storage
//
// Containers are written with Writable.WriteFile or published to a
// blobstore.BlobStore (local disk, memory, S3, MinIO) with Writable.Publish
// and opened with Open, FromBytes or OpenBlob.
package yocto
