package sqlinline

const QCreateUsageCounters = `--sql a88e9401-e91f-4170-8789-2e623d3dd420
create table if not exists usage_counters (
  key          text primary key,
  count        int not null default 0,
  period_start timestamptz not null,
  updated_at   timestamptz not null default now()
);
`

const QSelectUsageCounter = `--sql 2dec2340-faa8-4522-b52f-3edf8677c887
select count, period_start
from usage_counters
where key = $1::text
limit 1;
`

const QUpsertUsageCounter = `--sql 128a7be8-ac51-4e5c-8a22-46d0c806ff3c
insert into usage_counters(key, count, period_start, updated_at)
values ($1::text, $2::int, $3::timestamptz, now())
on conflict (key) do update
set count = excluded.count,
    period_start = excluded.period_start,
    updated_at = now();
`

const QPruneUsageCounters = `--sql 624099fd-45cc-4c05-84da-c2ac0f435604
delete from usage_counters
where updated_at < $1::timestamptz;
`
