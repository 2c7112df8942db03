// Package popdata defines the data rows that flow between pipeline stages:
// municipalities, census persons and households, travel-survey trip chains,
// income distributions, and the synthesized outputs.
//
// Every result type round-trips through the working-directory cache, so
// fields carry cbor tags and exported types stay plain data. Vocabulary
// follows the INSEE sources the pipeline consumes (communes, consumption
// units, Filosofi income deciles).
package popdata
