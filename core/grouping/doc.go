// Package grouping partitions candidates into batched groups.
//
// Groups never mix job codes. Each job code is split into the smallest number
// of groups whose sizes all lie within the activity bounds; when the headcount
// is below the minimum the tail group is padded with placeholder members that
// are never emitted.
package grouping
