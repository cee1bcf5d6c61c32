/*
Package conversation serializes access to stored flow executions.

Every request against one execution id runs inside that id's critical section:
load, rehydrate, signal, save. The section is an in-process mutex, reference
counted so idle ids cost nothing, optionally extended across replicas with a
ports.DistributedLocker.
*/
package conversation
