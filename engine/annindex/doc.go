// Package annindex reads prebuilt flat nearest-neighbour indexes from disk and
// answers k-NN queries against them.
//
// The on-disk layout is the FAISS serialisation of flat indexes: IndexFlatL2
// ("IxF2"), IndexFlatIP ("IxFI") and an IndexIDMap ("IxMp"/"IxM2") wrapping
// one of them. Search results always have exactly k slots; slots without a
// neighbour carry NoLabel.
package annindex
