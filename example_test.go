package yocto_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/yocto"
)

func Example() {
	b, err := yocto.NewDatabaseBuilder()
	if err != nil {
		log.Fatal(err)
	}

	for _, c := range []string{"red", "blue", "red"} {
		doc := yocto.NewDocument().
			With("color", yocto.Sortable, yocto.Variable, yocto.String(c)).
			WithPayload([]byte("payload-" + c))
		if _, err := b.Merge(doc); err != nil {
			log.Fatal(err)
		}
	}

	w, err := b.BuildWritable()
	if err != nil {
		log.Fatal(err)
	}
	data, err := w.Bytes()
	if err != nil {
		log.Fatal(err)
	}

	db, err := yocto.FromBytes(data)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ids, err := db.Execute(context.Background(), yocto.Select().
		Where(yocto.Eq("color", yocto.String("red"))))
	if err != nil {
		log.Fatal(err)
	}
	for _, id := range ids {
		p, _ := db.Payload(id)
		fmt.Println(id, string(p))
	}

	// Output:
	// 0 payload-red
	// 2 payload-red
}

func ExampleQuery_OrderBy() {
	b, _ := yocto.NewDatabaseBuilder()
	for _, price := range []int32{30, -5, 12} {
		_, _ = b.Merge(yocto.NewDocument().
			With("price", yocto.Sortable, yocto.Fixed, yocto.Int(price)))
	}
	w, _ := b.BuildWritable()
	data, _ := w.Bytes()
	db, _ := yocto.FromBytes(data)
	defer db.Close()

	ids, _ := db.Execute(context.Background(), yocto.Select().OrderBy("price", yocto.Desc))
	for _, id := range ids {
		v, _ := db.ValueOf("price", id)
		price, _ := v.AsInt()
		fmt.Println(id, price)
	}

	// Output:
	// 0 30
	// 2 12
	// 1 -5
}
